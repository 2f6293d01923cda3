// Command ipfix-collectord runs a long-lived IPFIX collector: it binds
// TCP and/or UDP listeners, decodes incoming messages against a template
// cache of their own per TCP connection or UDP remote address, fans
// decoded records out to the configured sinks, and
// exposes a chi-routed HTTP surface for health, Prometheus metrics, and
// a websocket live tail of recently decoded records.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-logr/zapr"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/flowlens/ipfixcore"
	"github.com/flowlens/ipfixcore/sink/kafka"
	"github.com/flowlens/ipfixcore/sink/mqtt"
	"github.com/flowlens/ipfixcore/sink/postgres"
	"github.com/flowlens/ipfixcore/transport/tcp"
	"github.com/flowlens/ipfixcore/transport/udp"
)

func main() {
	var (
		tcpAddr    = flag.String("tcp", ":4739", "address to bind the TCP listener to, empty to disable")
		udpAddr    = flag.String("udp", ":4739", "address to bind the UDP listener to, empty to disable")
		httpAddr   = flag.String("http", ":8080", "address to bind the status/metrics HTTP server to")
		pgDSN      = flag.String("postgres-dsn", "", "Postgres DSN to persist decoded records to, empty to disable")
		pgTable    = flag.String("postgres-table", "flows", "table name to insert decoded records into")
		kafkaAddr  = flag.String("kafka-brokers", "", "comma-separated Kafka broker addresses to publish decoded records to, empty to disable")
		kafkaTopic = flag.String("kafka-topic", "ipfix-records", "Kafka topic to publish decoded records to")
		mqttURL    = flag.String("mqtt-broker", "", "MQTT broker URL to publish decoded records to, empty to disable")
		mqttPrefix = flag.String("mqtt-topic-prefix", "ipfix", "topic prefix to publish decoded records under")
	)
	flag.Parse()

	zl, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	defer zl.Sync()
	logger := zapr.NewLogger(zl)
	ipfix.SetLogger(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info("received shutdown signal")
		cancel()
	}()

	tail := newTailBuffer()
	sinks := ipfix.MultiSink{tail}

	if *pgDSN != "" {
		pool, err := pgxpool.New(ctx, *pgDSN)
		if err != nil {
			log.Fatalf("connecting to postgres: %v", err)
		}
		defer pool.Close()
		if _, err := pool.Exec(ctx, fmt.Sprintf(postgres.Schema, *pgTable)); err != nil {
			log.Fatalf("ensuring postgres schema: %v", err)
		}
		sinks = append(sinks, postgres.New(pool, *pgTable))
		logger.Info("persisting decoded records to postgres", "table", *pgTable)
	}
	if *kafkaAddr != "" {
		ks := kafka.New(strings.Split(*kafkaAddr, ","), *kafkaTopic)
		defer ks.Close()
		sinks = append(sinks, ks)
		logger.Info("publishing decoded records to kafka", "topic", *kafkaTopic)
	}
	if *mqttURL != "" {
		opts := paho.NewClientOptions().AddBroker(*mqttURL).SetClientID("ipfix-collectord")
		client := paho.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.Fatalf("connecting to mqtt broker: %v", token.Error())
		}
		defer client.Disconnect(250)
		sinks = append(sinks, mqtt.New(client, *mqttPrefix, 0))
		logger.Info("publishing decoded records to mqtt", "prefix", *mqttPrefix)
	}

	var wg sync.WaitGroup
	if *tcpAddr != "" {
		l := tcp.New(*tcpAddr, ipfix.NewEphemeralCache, sinks)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Listen(ctx); err != nil {
				logger.Error(err, "tcp listener stopped")
			}
		}()
	}
	if *udpAddr != "" {
		l := udp.New(*udpAddr, ipfix.NewEphemeralCache, sinks)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Listen(ctx); err != nil {
				logger.Error(err, "udp listener stopped")
			}
		}()
	}

	httpServer := &http.Server{Addr: *httpAddr, Handler: newRouter(tail)}
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("starting status/metrics server", "addr", *httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(err, "http server stopped")
		}
	}()

	<-ctx.Done()
	if err := httpServer.Close(); err != nil {
		logger.Error(err, "closing http server")
	}
	wg.Wait()
}

func newRouter(tail *tailBuffer) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws/tail", tail.serveWS)

	return r
}

// tailBuffer is an ipfix.Sink that fans each newly accepted record out
// to every connected websocket client, for /ws/tail. It keeps no
// history: a client sees only records accepted after it connected.
type tailBuffer struct {
	mu   sync.Mutex
	subs map[chan ipfix.Record]struct{}
}

var _ ipfix.Sink = (*tailBuffer)(nil)

func newTailBuffer() *tailBuffer {
	return &tailBuffer{subs: make(map[chan ipfix.Record]struct{})}
}

func (t *tailBuffer) Accept(ctx context.Context, rec ipfix.Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for ch := range t.subs {
		select {
		case ch <- rec:
		default:
			// a slow websocket client drops records rather than blocking
			// the decode loop
		}
	}
	return nil
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (t *tailBuffer) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ch := make(chan ipfix.Record, 32)
	t.mu.Lock()
	t.subs[ch] = struct{}{}
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		delete(t.subs, ch)
		t.mu.Unlock()
	}()

	for rec := range ch {
		fields := make(map[string]any, len(rec.Data.Fields))
		for id, v := range rec.Data.Map() {
			fields[jsonKey(id)] = v.Render()
		}
		payload, err := json.Marshal(struct {
			ObservationDomainId uint32         `json:"observationDomainId"`
			TemplateId          uint16         `json:"templateId"`
			Fields              map[string]any `json:"fields"`
		}{rec.Template.Key.ObservationDomainId, rec.Template.Key.TemplateId, fields})
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func jsonKey(id uint16) string {
	return "ie" + strconv.Itoa(int(id))
}
