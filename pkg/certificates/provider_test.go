package certificates_test

import (
	"crypto/x509"
	"net"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/hostncode/apphost-smoke/pkg/certificates"
)

var _ = Describe("Certification Provider", func() {
	Context("self signed certificate", func() {
		It("generates successfully", func() {
			cert, key, err := certificates.GenerateSelfSignedCertificate(time.Now().Add(10 * time.Second))
			Expect(err).To(BeNil())
			Expect(key).ToNot(BeNil())

			data := x509.MarshalPKCS1PrivateKey(key)
			Expect(len(data) > 0).To(BeTrue())

			Expect(cert.Issuer.Organization).Should(ContainElement("Host 'n Code"))
			Expect(cert.Subject.OrganizationalUnit).Should(ContainElement("Web Frontend"))
		})

		// Given a certificate with a future expiry
		// When we check the certificate validity
		// Then NotBefore should be before NotAfter
		It("has correct validity period", func() {
			expiry := time.Now().Add(24 * time.Hour)
			cert, _, err := certificates.GenerateSelfSignedCertificate(expiry)
			Expect(err).To(BeNil())

			Expect(cert.NotBefore).To(BeTemporally("<", cert.NotAfter))
			Expect(cert.NotAfter).To(BeTemporally("~", expiry, time.Second))
		})

		// Given a generated certificate
		// When we check the subject alternative names
		// Then it should be valid for localhost and the loopback address
		It("is valid for the loopback addresses", func() {
			cert, _, err := certificates.GenerateSelfSignedCertificate(time.Now().Add(time.Hour))
			Expect(err).To(BeNil())

			Expect(cert.VerifyHostname("localhost")).To(Succeed())
			Expect(cert.VerifyHostname("127.0.0.1")).To(Succeed())
			Expect(cert.IPAddresses).To(ContainElement(BeEquivalentTo(net.IPv4(127, 0, 0, 1).To4())))
		})

		// Given a generated certificate
		// When we check key usage
		// Then it should support server and client authentication
		It("supports server and client authentication", func() {
			cert, _, err := certificates.GenerateSelfSignedCertificate(time.Now().Add(time.Hour))
			Expect(err).To(BeNil())

			Expect(cert.ExtKeyUsage).To(ContainElement(x509.ExtKeyUsageServerAuth))
			Expect(cert.ExtKeyUsage).To(ContainElement(x509.ExtKeyUsageClientAuth))
			Expect(cert.IsCA).To(BeTrue())
		})
	})

	Context("tls configuration", func() {
		// Given a generated certificate and key
		// When we build the server TLS configuration
		// Then it should carry exactly one certificate and require TLS 1.2
		It("builds a server configuration", func() {
			cert, key, err := certificates.GenerateSelfSignedCertificate(time.Now().Add(time.Hour))
			Expect(err).To(BeNil())

			cfg, err := certificates.TLSConfig(cert, key)
			Expect(err).To(BeNil())
			Expect(cfg.Certificates).To(HaveLen(1))
			Expect(cfg.MinVersion).To(BeNumerically(">=", 0x0303))
		})
	})
})
