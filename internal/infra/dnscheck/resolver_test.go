package dnscheck

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/miekg/dns"
)

// startServer runs a UDP nameserver answering from a fixed zone.
func startServer(t *testing.T) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	mux := dns.NewServeMux()
	mux.HandleFunc(".", func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(req)
		q := req.Question[0]

		switch q.Name {
		case "mx.example.":
			if q.Qtype == dns.TypeMX {
				rr, _ := dns.NewRR("mx.example. 300 IN MX 10 mail.mx.example.")
				m.Answer = append(m.Answer, rr)
			}
		case "aonly.example.":
			if q.Qtype == dns.TypeA {
				rr, _ := dns.NewRR("aonly.example. 300 IN A 192.0.2.10")
				m.Answer = append(m.Answer, rr)
			}
		case "empty.example.":
			// NOERROR with no records.
		case "broken.example.":
			m.Rcode = dns.RcodeServerFailure
		default:
			m.Rcode = dns.RcodeNameError
		}
		w.WriteMsg(m)
	})

	started := make(chan struct{})
	srv := &dns.Server{PacketConn: pc, Handler: mux, NotifyStartedFunc: func() { close(started) }}
	go srv.ActivateAndServe()
	t.Cleanup(func() { srv.Shutdown() })

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("dns server did not start")
	}
	return pc.LocalAddr().String()
}

func TestResolver_HasMailHost(t *testing.T) {
	addr := startServer(t)
	r, err := New(Config{Servers: []string{addr}, Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		domain  string
		want    bool
		wantErr bool
	}{
		{"mx.example", true, false},
		{"MX.example.", true, false},
		{"aonly.example", true, false},
		{"empty.example", false, false},
		{"missing.example", false, false},
		{"broken.example", false, true},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			got, err := r.HasMailHost(context.Background(), tt.domain)
			if (err != nil) != tt.wantErr {
				t.Fatalf("HasMailHost(%q) error = %v, wantErr %v", tt.domain, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("HasMailHost(%q) = %v, want %v", tt.domain, got, tt.want)
			}
		})
	}
}

func TestResolver_UnreachableServer(t *testing.T) {
	pc, _ := net.ListenPacket("udp", "127.0.0.1:0")
	addr := pc.LocalAddr().String()
	pc.Close()

	r, _ := New(Config{Servers: []string{addr}, Timeout: 200 * time.Millisecond})
	if _, err := r.HasMailHost(context.Background(), "mx.example"); err == nil {
		t.Error("HasMailHost() against a dead server should fail")
	}
}

func TestResolver_FallsThroughServers(t *testing.T) {
	pc, _ := net.ListenPacket("udp", "127.0.0.1:0")
	dead := pc.LocalAddr().String()
	pc.Close()

	r, _ := New(Config{Servers: []string{dead, startServer(t)}, Timeout: 200 * time.Millisecond})
	ok, err := r.HasMailHost(context.Background(), "mx.example")
	if err != nil || !ok {
		t.Errorf("HasMailHost() = %v, %v; want true, nil", ok, err)
	}
}

func TestNew(t *testing.T) {
	r, err := New(Config{Servers: []string{"192.0.2.53"}})
	if err != nil {
		t.Fatal(err)
	}
	if r.servers[0] != "192.0.2.53:53" {
		t.Errorf("servers[0] = %q, want default port", r.servers[0])
	}

	conf := filepath.Join(t.TempDir(), "resolv.conf")
	os.WriteFile(conf, []byte("nameserver 192.0.2.1\nnameserver 192.0.2.2\n"), 0o644)
	r, err = New(Config{ResolvConf: conf})
	if err != nil {
		t.Fatal(err)
	}
	if len(r.servers) != 2 || r.servers[1] != "192.0.2.2:53" {
		t.Errorf("servers = %v", r.servers)
	}

	if _, err := New(Config{ResolvConf: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Error("New() with missing resolv.conf should fail")
	}
}
