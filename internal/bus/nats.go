package bus

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/ernie/gamefinder/internal/config"
	"github.com/ernie/gamefinder/internal/domain"
)

// Publisher forwards graph change events to NATS subjects
// (<prefix>.<event type>) for external consumers such as snapshot
// builders. With config.NATS.Embedded set it also runs an in-process
// NATS server so a single binary can serve the bus.
type Publisher struct {
	nc     *nats.Conn
	srv    *server.Server
	prefix string
}

// Start connects to NATS per the config. Returns nil when the bus is
// disabled (no URL and not embedded).
func Start(cfg config.NATSConfig) (*Publisher, error) {
	var srv *server.Server
	url := cfg.URL

	if cfg.Embedded {
		ns, err := server.NewServer(&server.Options{
			Port: cfg.ListenPort,
		})
		if err != nil {
			return nil, fmt.Errorf("creating embedded nats server: %w", err)
		}
		go ns.Start()
		if !ns.ReadyForConnections(5 * time.Second) {
			ns.Shutdown()
			return nil, fmt.Errorf("embedded nats server did not become ready")
		}
		srv = ns
		url = ns.ClientURL()
		log.Printf("Embedded NATS server listening on %s", url)
	} else if url == "" {
		return nil, nil
	}

	nc, err := nats.Connect(url,
		nats.Name("gamefinder"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		if srv != nil {
			srv.Shutdown()
		}
		return nil, fmt.Errorf("connecting to nats at %s: %w", url, err)
	}

	return &Publisher{nc: nc, srv: srv, prefix: cfg.SubjectPrefix}, nil
}

// Publish sends one event. Marshal or publish failures are logged, not
// returned: the bus is best-effort and must never stall the graph.
func (p *Publisher) Publish(event domain.Event) {
	if p == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshaling event for bus: %v", err)
		return
	}
	subject := p.prefix + "." + event.Type
	if err := p.nc.Publish(subject, data); err != nil {
		log.Printf("Error publishing to %s: %v", subject, err)
	}
}

// Close drains the connection and stops the embedded server if any
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
	if p.srv != nil {
		p.srv.Shutdown()
	}
}
