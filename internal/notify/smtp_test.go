package notify

import (
	"bufio"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// selfSignedTLS returns a server certificate for 127.0.0.1 and a client
// config that trusts it.
func selfSignedTLS(t *testing.T) (server, client *tls.Config) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "127.0.0.1"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	pool := x509.NewCertPool()
	pool.AddCert(leaf)
	server = &tls.Config{Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key, Leaf: leaf}}}
	client = &tls.Config{RootCAs: pool}
	return server, client
}

type smtpSession struct {
	mu       sync.Mutex
	commands []string
	data     string
}

// fakeSMTPS accepts one implicit-TLS session and answers the minimal command
// set net/smtp uses. authReply is sent in response to AUTH.
func fakeSMTPS(t *testing.T, cfg *tls.Config, authReply string) (port int, sess *smtpSession) {
	t.Helper()
	ln, err := tls.Listen("tcp", "127.0.0.1:0", cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	sess = &smtpSession{}
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		w := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }

		w("220 fake ESMTP")
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\r\n")
			sess.mu.Lock()
			sess.commands = append(sess.commands, line)
			sess.mu.Unlock()

			verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
			switch verb {
			case "EHLO":
				w("250-fake")
				w("250 AUTH PLAIN")
			case "AUTH":
				w(authReply)
			case "MAIL", "RCPT":
				w("250 OK")
			case "DATA":
				w("354 go ahead")
				var b strings.Builder
				for {
					l, err := r.ReadString('\n')
					if err != nil {
						return
					}
					if l == ".\r\n" {
						break
					}
					b.WriteString(l)
				}
				sess.mu.Lock()
				sess.data = b.String()
				sess.mu.Unlock()
				w("250 queued")
			case "QUIT":
				w("221 bye")
				return
			default:
				w("502 unsupported")
			}
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port, sess
}

func TestSMTPTransport_DeliversOverImplicitTLS(t *testing.T) {
	srvCfg, cliCfg := selfSignedTLS(t)
	port, sess := fakeSMTPS(t, srvCfg, "235 accepted")

	tr := &SMTPTransport{
		Host:      "127.0.0.1",
		Port:      port,
		Username:  "site@example.com",
		Password:  "app-password",
		Timeout:   5 * time.Second,
		TLSConfig: cliCfg,
	}
	msg := Message{ID: "<1@example.com>", From: "site@example.com", To: "ops@example.com", Subject: "Yeni Teklif Talebi - Klima", HTML: "<p>merhaba</p>", Date: time.Now()}
	require.NoError(t, tr.Deliver(context.Background(), msg))

	sess.mu.Lock()
	defer sess.mu.Unlock()
	joined := strings.Join(sess.commands, "\n")
	assert.Contains(t, joined, "AUTH PLAIN")
	assert.Contains(t, joined, "MAIL FROM:<site@example.com>")
	assert.Contains(t, joined, "RCPT TO:<ops@example.com>")
	assert.Contains(t, sess.data, "Message-ID: <1@example.com>")
	assert.Contains(t, sess.data, "Content-Type: text/html; charset=UTF-8")
}

func TestSMTPTransport_AuthFailure(t *testing.T) {
	srvCfg, cliCfg := selfSignedTLS(t)
	port, _ := fakeSMTPS(t, srvCfg, "535 5.7.8 Username and Password not accepted")

	tr := &SMTPTransport{Host: "127.0.0.1", Port: port, Username: "u@example.com", Password: "bad", Timeout: 5 * time.Second, TLSConfig: cliCfg}
	err := tr.Deliver(context.Background(), Message{From: "u@example.com", To: "ops@example.com", HTML: "x", Date: time.Now()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP authentication failed")
}

func TestSMTPTransport_ConnectFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	tr := &SMTPTransport{Host: "127.0.0.1", Port: port, Timeout: time.Second}
	err = tr.Deliver(context.Background(), Message{From: "a@b.co", To: "c@d.co"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
}

func TestSMTPTransport_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr := &SMTPTransport{Host: "127.0.0.1", Port: 1}
	err := tr.Deliver(ctx, Message{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSMTPTransport_UntrustedCertificate(t *testing.T) {
	srvCfg, _ := selfSignedTLS(t)
	port, _ := fakeSMTPS(t, srvCfg, "235 accepted")

	tr := &SMTPTransport{Host: "127.0.0.1", Port: port, Timeout: 2 * time.Second}
	err := tr.Deliver(context.Background(), Message{From: "a@b.co", To: "c@d.co"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TLS handshake failed")
}
