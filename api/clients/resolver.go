package clients

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"

	"github.com/miekg/dns"
)

// DefaultNameserver is queried when no nameserver is configured and
// /etc/resolv.conf cannot be read.
const DefaultNameserver = "127.0.0.53:53"

// ErrNoServers is returned when an SRV lookup yields no usable targets.
var ErrNoServers = errors.New("no registry servers found")

// SRVResolver discovers registry servers through DNS SRV records such as
// _registry._tcp.example.com.
type SRVResolver struct {
	// Nameserver is the host:port of the DNS server to query.
	Nameserver string
	// Scheme is prepended to resolved targets, "http" when empty.
	Scheme string

	client *dns.Client
}

// NewSRVResolver creates a resolver querying nameserver. An empty
// nameserver falls back to the first entry of /etc/resolv.conf.
func NewSRVResolver(nameserver string) *SRVResolver {
	if nameserver == "" {
		nameserver = DefaultNameserver
		if conf, err := dns.ClientConfigFromFile("/etc/resolv.conf"); err == nil && len(conf.Servers) > 0 {
			nameserver = net.JoinHostPort(conf.Servers[0], conf.Port)
		}
	}

	return &SRVResolver{
		Nameserver: nameserver,
		Scheme:     "http",
		client:     new(dns.Client),
	}
}

// Resolve returns base URLs of the servers advertised under name, ordered by
// SRV priority (lowest first) and then by weight (highest first).
func (r *SRVResolver) Resolve(ctx context.Context, name string) ([]string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), dns.TypeSRV)
	msg.RecursionDesired = true

	in, _, err := r.client.ExchangeContext(ctx, msg, r.Nameserver)
	if err != nil {
		return nil, fmt.Errorf("SRV lookup of %s failed: %w", name, err)
	}
	if in.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("SRV lookup of %s failed: %s", name, dns.RcodeToString[in.Rcode])
	}

	records := make([]*dns.SRV, 0, len(in.Answer))
	for _, answer := range in.Answer {
		if srv, ok := answer.(*dns.SRV); ok {
			records = append(records, srv)
		}
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoServers, name)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Priority != records[j].Priority {
			return records[i].Priority < records[j].Priority
		}
		return records[i].Weight > records[j].Weight
	})

	scheme := r.Scheme
	if scheme == "" {
		scheme = "http"
	}

	servers := make([]string, 0, len(records))
	for _, srv := range records {
		host := strings.TrimSuffix(srv.Target, ".")
		servers = append(servers, fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(host, strconv.Itoa(int(srv.Port)))))
	}

	return servers, nil
}
