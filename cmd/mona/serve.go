package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/mona/pkg/file"
	"github.com/cuemby/mona/pkg/handler"
	"github.com/cuemby/mona/pkg/health"
	"github.com/cuemby/mona/pkg/iosocket"
	"github.com/cuemby/mona/pkg/log"
	"github.com/cuemby/mona/pkg/merrors"
	"github.com/cuemby/mona/pkg/metrics"
	"github.com/cuemby/mona/pkg/signal"
	"github.com/cuemby/mona/pkg/socket"
	"github.com/cuemby/mona/pkg/track"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the echo and file-capture demonstration server",
	Long: `serve accepts TCP connections and echoes back whatever it
receives, exercising Socket/IOSocket end to end. When --capture-db is
set, every connection's inbound bytes are also persisted into a bbolt
bucket keyed by connection and offset, exercising the capture decoder
pattern alongside the socket's read path.

serve runs until SIGINT, SIGTERM or SIGQUIT, then lets ThreadPool.Join
drain in-flight work before exiting.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":9007", "TCP address to listen on")
	serveCmd.Flags().Int("tracks", 0, "Thread pool size (0 = runtime.tracks from config; number of CPUs if that is 0 too)")
	serveCmd.Flags().String("capture-db", "", "Path to a bbolt file capturing every inbound byte (disabled if empty)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	addr, _ := cmd.Flags().GetString("addr")
	tracks, _ := cmd.Flags().GetInt("tracks")
	captureDB, _ := cmd.Flags().GetString("capture-db")
	if tracks == 0 {
		tracks = cfg.Runtime.Tracks
	}

	owner := handler.New()
	pool := track.NewThreadPool(tracks, track.PriorityNormal, owner)
	io, err := iosocket.New(pool, cfg.Runtime.SocketBuffer)
	if err != nil {
		return fmt.Errorf("serve: start notifier: %w", err)
	}
	defer io.Close()

	collector := metrics.NewCollector(pool, owner, "serve")
	collector.Start(5 * time.Second)
	defer collector.Stop()

	healthCfg := health.DefaultConfig()
	healthCfg.Interval = 5 * time.Second
	healthCfg.StartPeriod = 500 * time.Millisecond
	monitor := health.NewMonitor()
	watchListener(monitor, addr, healthCfg)
	defer monitor.Stop()

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Address, monitor)
	}

	var db *bolt.DB
	if captureDB != "" {
		db, err = bolt.Open(captureDB, 0o600, nil)
		if err != nil {
			return fmt.Errorf("serve: open capture db: %w", err)
		}
		defer db.Close()
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("serve: listen %s: %w", addr, err)
	}
	defer listener.Close()

	logger := log.WithComponent("serve")
	logger.Info().Str("addr", addr).Msg("listening")

	term := signal.NewTerminateSignal()
	acceptDone := make(chan struct{})
	go acceptLoop(listener, owner, io, db, cfg.Capture.ChunkSize, logger, acceptDone)

	for !term.Wait(200) {
		owner.Flush()
	}
	logger.Info().Msg("shutdown signal received, draining")

	_ = listener.Close()
	<-acceptDone
	owner.Flush()
	pool.Join()
	return nil
}

// acceptLoop accepts connections until listener is closed, wrapping each
// one as a Socket registered with io.
func acceptLoop(listener net.Listener, owner *handler.Handler, io *iosocket.IOSocket, db *bolt.DB, chunkSize int, logger zerolog.Logger, done chan struct{}) {
	defer close(done)
	for {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		handleAccepted(conn, owner, io, db, chunkSize, logger)
	}
}

func handleAccepted(conn net.Conn, owner *handler.Handler, io *iosocket.IOSocket, db *bolt.DB, chunkSize int, logger zerolog.Logger) {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		_ = conn.Close()
		return
	}
	raw, err := tcpConn.SyscallConn()
	if err != nil {
		_ = conn.Close()
		return
	}
	var fd int
	ctrlErr := raw.Control(func(descriptor uintptr) { fd = int(descriptor) })
	if ctrlErr != nil {
		_ = conn.Close()
		return
	}
	dupFD, err := dupNonblocking(fd)
	if err != nil {
		_ = conn.Close()
		return
	}
	_ = conn.Close() // the dup keeps the descriptor alive

	s := socket.FromFD(owner, dupFD, conn.RemoteAddr(), conn.LocalAddr())

	var capture *file.BoltCaptureDecoder
	if db != nil {
		capture, err = file.NewBoltCaptureDecoder(db, "capture-"+s.ID(), chunkSize)
		if err != nil {
			logger.Warn().Err(err).Str("subject", s.ID()).Msg("open capture bucket")
			capture = nil
		}
	}

	s.OnReceived.Subscribe(func(buf []byte) bool {
		if capture != nil {
			capture.Decode(buf, false)
		}
		if _, werr := s.Write(buf); werr != nil {
			logger.Warn().Err(werr).Str("subject", s.ID()).Msg("echo write failed")
		}
		return false
	})
	s.OnDisconnection.Subscribe(func(peer net.Addr) bool {
		if capture != nil {
			capture.Decode(nil, true)
		}
		logger.Info().Str("subject", s.ID()).Msg("peer disconnected")
		return false
	})
	s.OnError.Subscribe(func(merr *merrors.Error) bool {
		logger.Warn().Err(merr).Str("subject", s.ID()).Msg("socket error")
		return false
	})

	if err := io.Register(s, owner, 0, 0); err != nil {
		logger.Warn().Err(err).Msg("register accepted socket")
		return
	}

	logger.Info().Str("subject", s.ID()).Str("peer", fmt.Sprint(conn.RemoteAddr())).Msg("accepted")
}

// watchListener registers a watch on the listener this process itself
// opened, so /healthz reflects whether the echo listener is actually
// accepting connections.
func watchListener(monitor *health.Monitor, listenAddr string, cfg health.Config) {
	dialAddr := listenAddr
	if dialAddr[0] == ':' {
		dialAddr = "127.0.0.1" + dialAddr
	}
	monitor.Watch("listener", health.NewTCPChecker(dialAddr).WithTimeout(cfg.Timeout), cfg)
}

func serveMetrics(addr string, monitor *health.Monitor) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		status, _ := monitor.Status("listener")
		if !monitor.Healthy() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		fmt.Fprintf(w, `{"healthy":%t,"consecutive_failures":%d}`, status.Healthy, status.ConsecutiveFailures)
	})
	if err := http.ListenAndServe(addr, mux); err != nil {
		fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
	}
}
