package resources_test

import (
	"context"
	"io"
	"net/http"
	"os/exec"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/hostncode/apphost-smoke/pkg/apphost/resources"
)

var _ = Describe("Handler resource", func() {
	var (
		ctx      context.Context
		resource *resources.Handler
	)

	BeforeEach(func() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		DeferCleanup(cancel)

		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "Welcome")
		})
		resource = resources.NewHandler("webfrontend", mux, "")
		DeferCleanup(func() { _ = resource.Stop(context.Background()) })
	})

	It("has no endpoint before build", func() {
		_, err := resource.Endpoint()
		Expect(err).To(HaveOccurred())
	})

	It("refuses to start before build", func() {
		Expect(resource.Start(ctx)).ToNot(Succeed())
	})

	// Given a built handler
	// When it is started
	// Then it answers on its loopback endpoint and reports healthy
	It("serves on the endpoint allocated at build", func() {
		Expect(resource.Build(ctx)).To(Succeed())

		endpoint, err := resource.Endpoint()
		Expect(err).ToNot(HaveOccurred())
		Expect(endpoint.Hostname()).To(Equal("127.0.0.1"))
		Expect(endpoint.Port()).ToNot(BeEmpty())

		Expect(resource.Start(ctx)).To(Succeed())
		Eventually(func() error { return resource.Check(ctx) }, 2*time.Second).Should(Succeed())

		resp, err := http.Get(endpoint.String() + "/")
		Expect(err).ToNot(HaveOccurred())
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		Expect(string(body)).To(Equal("Welcome"))
	})

	It("is not healthy before it serves", func() {
		Expect(resource.Build(ctx)).To(Succeed())

		checkCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
		defer cancel()
		Expect(resource.Check(checkCtx)).ToNot(Succeed())
	})

	It("closes Done once stopped", func() {
		Expect(resource.Build(ctx)).To(Succeed())
		Expect(resource.Start(ctx)).To(Succeed())

		Expect(resource.Stop(ctx)).To(Succeed())
		Eventually(resource.Done()).Should(BeClosed())

		_, err := resource.Endpoint()
		Expect(err).To(HaveOccurred())
		Expect(resource.Stop(ctx)).To(Succeed())
	})

	It("releases the listener when stopped before start", func() {
		Expect(resource.Build(ctx)).To(Succeed())
		Expect(resource.Stop(ctx)).To(Succeed())
		Expect(resource.Start(ctx)).ToNot(Succeed())
	})
})

var _ = Describe("Process resource", func() {
	var ctx context.Context

	BeforeEach(func() {
		if _, err := exec.LookPath("sh"); err != nil {
			Skip("sh is not available")
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		DeferCleanup(cancel)
	})

	It("fails to build when the binary cannot be found", func() {
		p := resources.NewProcess("webfrontend", resources.ProcessConfig{Binary: "definitely-not-a-binary"})
		err := p.Build(ctx)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("failed to resolve binary"))
		Expect(p.Stop(ctx)).To(Succeed())
	})

	It("allocates its endpoint at build", func() {
		p := resources.NewProcess("webfrontend", resources.ProcessConfig{Binary: "sh", Args: []string{"-c", "exit 0"}})
		_, err := p.Endpoint()
		Expect(err).To(HaveOccurred())

		Expect(p.Build(ctx)).To(Succeed())
		endpoint, err := p.Endpoint()
		Expect(err).ToNot(HaveOccurred())
		Expect(endpoint.Hostname()).To(Equal("127.0.0.1"))
		Expect(p.Stop(ctx)).To(Succeed())
	})

	// Given a process that exits on its own
	// When it is started
	// Then Done reports the exit status
	It("reports the exit through Done", func() {
		p := resources.NewProcess("webfrontend", resources.ProcessConfig{Binary: "sh", Args: []string{"-c", "echo starting; exit 3"}})
		Expect(p.Build(ctx)).To(Succeed())
		Expect(p.Start(ctx)).To(Succeed())

		var exitErr error
		Eventually(p.Done(), 5*time.Second).Should(Receive(&exitErr))
		Expect(exitErr).To(MatchError(ContainSubstring("exit status 3")))
		Eventually(p.Done()).Should(BeClosed())
		Expect(p.Stop(ctx)).To(Succeed())
	})

	It("interrupts a running process on stop", func() {
		p := resources.NewProcess("webfrontend", resources.ProcessConfig{
			Binary:      "sh",
			Args:        []string{"-c", "exec sleep 30"},
			GracePeriod: 2 * time.Second,
		})
		Expect(p.Build(ctx)).To(Succeed())
		Expect(p.Start(ctx)).To(Succeed())

		Expect(p.Stop(ctx)).To(Succeed())
		Eventually(p.Done()).Should(BeClosed())
		Expect(p.Start(ctx)).ToNot(Succeed())
	})
})

var _ = Describe("Container resource", func() {
	It("requires a container port", func() {
		c := resources.NewContainer("webfrontend", resources.ContainerConfig{Image: "localhost/apphost-smoke:latest"})
		err := c.Build(context.Background())
		Expect(err).To(MatchError(ContainSubstring("container port")))
		Expect(c.Stop(context.Background())).To(Succeed())
	})

	It("has no endpoint before build", func() {
		c := resources.NewContainer("webfrontend", resources.ContainerConfig{ContainerPort: 8080})
		_, err := c.Endpoint()
		Expect(err).To(HaveOccurred())
	})
})
