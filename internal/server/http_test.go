package server_test

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/hostncode/apphost-smoke/internal/config"
	"github.com/hostncode/apphost-smoke/internal/server"
	"github.com/hostncode/apphost-smoke/internal/webfrontend"
)

func freePort() int {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).ToNot(HaveOccurred())
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

var insecureClient = &http.Client{
	Transport: &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
	},
	Timeout: 5 * time.Second,
}

var _ = Describe("HTTP Server", func() {
	var (
		cfg     *config.Configuration
		srv     *server.Server
		baseURL string
	)

	start := func() {
		var err error
		srv, err = server.NewServer(cfg, webfrontend.RegisterHandlers)
		Expect(err).ToNot(HaveOccurred())

		go func() {
			defer GinkgoRecover()
			Expect(srv.Start(context.TODO())).To(Succeed())
		}()

		Eventually(func() error {
			resp, err := insecureClient.Get(baseURL + webfrontend.HealthPath)
			if err != nil {
				return err
			}
			resp.Body.Close()
			return nil
		}, 5*time.Second).Should(Succeed())
	}

	AfterEach(func() {
		if srv != nil {
			srv.Stop(context.TODO())
			srv = nil
		}
	})

	Context("dev server mode", func() {
		BeforeEach(func() {
			cfg = config.NewConfigurationWithOptionsAndDefaults(func(c *config.Configuration) {
				c.Server.ServerMode = server.DevServer
				c.Server.HTTPPort = freePort()
			})
			baseURL = fmt.Sprintf("http://localhost:%d", cfg.Server.HTTPPort)
		})

		It("serves the pages over HTTP", func() {
			start()

			resp, err := http.Get(baseURL + "/about")
			Expect(err).ToNot(HaveOccurred())
			defer resp.Body.Close()

			body, _ := io.ReadAll(resp.Body)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(string(body)).To(ContainSubstring("About Host 'n Code"))
		})

		// Given a running server
		// When we request a page that does not exist
		// Then it should return 404 with a JSON error
		It("returns 404 JSON for unknown routes", func() {
			start()

			resp, err := http.Get(baseURL + "/contact")
			Expect(err).ToNot(HaveOccurred())
			defer resp.Body.Close()

			body, _ := io.ReadAll(resp.Body)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			Expect(resp.Header.Get("Content-Type")).To(ContainSubstring("application/json"))
			Expect(string(body)).To(ContainSubstring("page not found"))
		})
	})

	Context("production server mode", func() {
		BeforeEach(func() {
			cfg = config.NewConfigurationWithOptionsAndDefaults(func(c *config.Configuration) {
				c.Server.ServerMode = server.ProductionServer
				c.Server.HTTPPort = freePort()
			})
			baseURL = fmt.Sprintf("https://localhost:%d", cfg.Server.HTTPPort)
		})

		It("serves over HTTPS with TLS", func() {
			start()

			resp, err := insecureClient.Get(baseURL + "/services")
			Expect(err).ToNot(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.TLS).ToNot(BeNil())
		})

		// Given a running production server
		// When we call Stop
		// Then subsequent requests should fail
		It("stops accepting requests after Stop", func() {
			start()

			// Act
			srv.Stop(context.TODO())
			srv = nil // prevent double stop in AfterEach

			// Assert
			_, err := insecureClient.Get(baseURL + webfrontend.HealthPath)
			Expect(err).To(HaveOccurred())
		})
	})
})
