package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"chronocube.game/internal/persistence/runsdb"
	"chronocube.game/internal/sim/content"
	"chronocube.game/internal/sim/session"
	"chronocube.game/internal/sim/tuning"
	"chronocube.game/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "content pack directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the runs index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	pack, err := content.Load(*configDir)
	if err != nil {
		logger.Fatalf("load content: %v", err)
	}
	_ = os.MkdirAll(*dataDir, 0o755)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Default()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	var runs *runsdb.RunsDB
	if !*disableDB {
		runs, err = runsdb.OpenSQLite(filepath.Join(*dataDir, "runs.db"))
		if err != nil {
			logger.Fatalf("open runs db: %v", err)
		}
		defer runs.Close()
		if err := runs.UpsertContent(*configDir, pack); err != nil {
			logger.Printf("runs db: upsert content: %v", err)
		}
	}

	sink := newPersistSink(*dataDir, tune, runs, logger)
	defer sink.Close()

	manager := session.NewManager(pack, sink, session.Config{
		ProtocolVersion: tune.ProtocolVersion,
		HistoryLimit:    tune.HistoryLimit,
	})
	server := ws.NewServer(manager, logger)

	ctx, cancel := signalContext()
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		fmt.Fprintf(rw, "# HELP chronocube_sessions Current number of live sessions.\n")
		fmt.Fprintf(rw, "# TYPE chronocube_sessions gauge\n")
		fmt.Fprintf(rw, "chronocube_sessions{level=%q} %d\n", pack.Level.ID, manager.Count())

		fmt.Fprintf(rw, "# HELP chronocube_turns_total Total committed turns since start.\n")
		fmt.Fprintf(rw, "# TYPE chronocube_turns_total counter\n")
		fmt.Fprintf(rw, "chronocube_turns_total{level=%q} %d\n", pack.Level.ID, sink.Turns())

		fmt.Fprintf(rw, "# HELP chronocube_runs_finished_total Total runs that reached a terminal phase.\n")
		fmt.Fprintf(rw, "# TYPE chronocube_runs_finished_total counter\n")
		fmt.Fprintf(rw, "chronocube_runs_finished_total{level=%q} %d\n", pack.Level.ID, sink.Finished())
	})

	mux.HandleFunc("/v1/play", server.PlayHandler())
	mux.HandleFunc("/v1/watch", server.WatchHandler())
	mux.HandleFunc("/v1/state", server.StateHandler())

	if runs != nil {
		mux.HandleFunc("/admin/v1/runs", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rows, err := runs.RecentRuns(50)
			if err != nil {
				http.Error(rw, err.Error(), http.StatusInternalServerError)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(rows)
		})
	}
	if envBool("CC_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("level %s (%dx%dx%d), listening on %s", pack.Level.ID, pack.Level.Width, pack.Level.Height, pack.Level.TimeDepth, *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func envBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
