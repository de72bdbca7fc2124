// Command tn5250r is a 5250 terminal-emulator client: it dials a host,
// negotiates telnet options, and drives an internal/session.Session
// either interactively (raw-mode keyboard loop, lipgloss-rendered
// screen) or as a one-shot "-dump" snapshot for scripting and
// debugging.
//
// Grounded on the teacher's cmd/vision3/main.go (flag parsing, dial
// setup, log.Printf-style status lines) and cmd/debug-tui/main.go
// (golang.org/x/term raw-mode single-key read loop).
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/term"

	"github.com/dtg01100/tn5250r-go/internal/codec"
	"github.com/dtg01100/tn5250r-go/internal/config"
	"github.com/dtg01100/tn5250r-go/internal/controller"
	"github.com/dtg01100/tn5250r-go/internal/display"
	"github.com/dtg01100/tn5250r-go/internal/logging"
	"github.com/dtg01100/tn5250r-go/internal/session"
	"github.com/dtg01100/tn5250r-go/internal/telnet"
	"github.com/dtg01100/tn5250r-go/internal/transport"
)

// Exit codes, per the command-line contract: 0 success, 1 generic
// error, 2 connection failure, 3 protocol error, 64 usage error.
const (
	exitOK       = 0
	exitError    = 1
	exitConnFail = 2
	exitProtocol = 3
	exitUsage    = 64
)

func main() {
	os.Exit(run())
}

func run() int {
	server := flag.String("server", "", "5250 host to connect to (required)")
	port := flag.Int("port", 23, "host port")
	tlsMode := flag.String("tls", "", "TLS mode: on, off, or auto (overrides config when set)")
	model := flag.Int("model", 0, "terminal model number (overrides config when nonzero)")
	user := flag.String("user", "", "NEW-ENVIRON USER value (overrides config when set)")
	devname := flag.String("devname", "", "NEW-ENVIRON DEVNAME value (overrides config when set)")
	configPath := flag.String("config", "", "path to a JSON config document (see internal/config)")
	dump := flag.Bool("dump", false, "connect, render one screen snapshot to stdout, and exit")
	debug := flag.Bool("debug", false, "enable debug logging")
	metricsAddr := flag.String("metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9090)")
	flag.Parse()

	logging.DebugEnabled = *debug || os.Getenv("DEBUG") == "1"

	if *server == "" {
		fmt.Fprintln(os.Stderr, "tn5250r: --server is required")
		return exitUsage
	}

	store, err := config.NewStore(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tn5250r: loading config: %v\n", err)
		return exitUsage
	}
	cfg := store.Get()

	if *tlsMode != "" {
		switch *tlsMode {
		case "on":
			cfg.NetworkTLS = config.TLSOn
		case "off":
			cfg.NetworkTLS = config.TLSOff
		case "auto":
			cfg.NetworkTLS = config.TLSAuto
		default:
			fmt.Fprintf(os.Stderr, "tn5250r: --tls must be on, off, or auto, got %q\n", *tlsMode)
			return exitUsage
		}
	}
	if *model != 0 {
		cfg.TerminalModel = *model
	}
	if *user != "" {
		cfg.EnvUser = *user
	}
	if *devname != "" {
		cfg.EnvDevname = *devname
	}

	watcher, err := config.WatchStore(store)
	if err != nil {
		log.Printf("tn5250r: config hot-reload disabled: %v", err)
	}
	if watcher != nil {
		defer watcher.Stop()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	conn, err := dial(ctx, *server, *port, cfg.NetworkTLS)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tn5250r: dial %s:%d: %v\n", *server, *port, err)
		return exitConnFail
	}
	defer conn.Close()

	tconn := transport.NewConn(conn)
	sess := session.New(display.Model(cfg.TerminalModel), codec.CCSID(cfg.TerminalCCSID))

	env := telnet.EnvVars{
		User:     cfg.EnvUser,
		DevName:  cfg.EnvDevname,
		KbdType:  cfg.EnvKbdtype,
		Codepage: strconv.Itoa(cfg.TerminalCCSID),
		Charset:  strconv.Itoa(cfg.TerminalCCSID),
	}
	neg := telnet.New(tconn, []byte{
		telnet.OptBinary,
		telnet.OptEOR,
		telnet.OptTermType,
		telnet.OptNAWS,
		telnet.OptSGA,
		telnet.OptNewEnviron,
		telnet.OptCharset,
	}, cfg.TerminalType, env, tconn.SetEOR)

	var metrics *controller.Metrics
	if *metricsAddr != "" {
		metrics = serveMetrics(*metricsAddr)
	}

	ctrl := controller.New(tconn, neg, sess, controller.Options{
		ConnectTimeout: time.Duration(cfg.TimeoutConnectMs) * time.Millisecond,
		IdleTimeout:    time.Duration(cfg.TimeoutIdleMs) * time.Millisecond,
		Metrics:        metrics,
	})

	_ = neg.RequestLocal(telnet.OptBinary)
	_ = neg.RequestRemote(telnet.OptBinary)
	_ = neg.RequestLocal(telnet.OptEOR)
	_ = neg.RequestRemote(telnet.OptEOR)

	if w, h, err := term.GetSize(int(os.Stdin.Fd())); err == nil {
		neg.SetLocalSize(w, h)
	} else {
		rows, cols := sess.Display().Dimensions()
		neg.SetLocalSize(cols, rows)
	}
	_ = neg.RequestLocal(telnet.OptNAWS)
	go watchResize(ctx, neg)

	runErrCh := make(chan error, 1)
	go func() { runErrCh <- ctrl.Run(ctx) }()

	if *dump {
		runDump(ctx, ctrl)
		cancel()
		<-runErrCh
		return exitOK
	}

	exitCode := exitOK
	if err := runInteractive(ctx, ctrl); err != nil {
		log.Printf("tn5250r: %v", err)
		exitCode = exitError
	}

	cancel()
	if err := <-runErrCh; err != nil && !errors.Is(err, context.Canceled) {
		logging.Debug("tn5250r: controller.Run returned: %v", err)
		if exitCode == exitOK {
			exitCode = exitProtocol
		}
	}
	return exitCode
}

// watchResize resends NAWS whenever the terminal emits SIGWINCH, so a
// host tracking window size stays in sync after the user resizes their
// terminal emulator.
func watchResize(ctx context.Context, neg *telnet.Negotiator) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGWINCH)
	defer signal.Stop(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			if w, h, err := term.GetSize(int(os.Stdin.Fd())); err == nil {
				_ = neg.SendNAWS(w, h)
			}
		}
	}
}

// serveMetrics starts a private Prometheus registry and exposes it over
// HTTP on addr in the background, returning Metrics for the Controller
// to update. Wiring metrics is entirely opt-in: no -metrics-addr means
// no registry, no HTTP listener, no counters.
func serveMetrics(addr string) *controller.Metrics {
	reg := prometheus.NewRegistry()
	metrics := controller.NewMetrics(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("tn5250r: metrics server on %s stopped: %v", addr, err)
		}
	}()
	return metrics
}

// dial opens the transport to addr:port, wrapping it in TLS per mode:
// "on" always wraps, "off" never does, "auto" wraps only when port is
// the conventional secure-telnet port 992.
func dial(ctx context.Context, host string, port int, mode config.TLSMode) (net.Conn, error) {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	d := net.Dialer{}

	useTLS := mode == config.TLSOn || (mode == config.TLSAuto && port == 992)
	if !useTLS {
		return d.DialContext(ctx, "tcp", addr)
	}

	plain, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	tlsConn := tls.Client(plain, &tls.Config{ServerName: host})
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		plain.Close()
		return nil, err
	}
	return tlsConn, nil
}

// runDump waits briefly for the host's initial screen, renders it once,
// and returns.
func runDump(ctx context.Context, ctrl *controller.Controller) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(2 * time.Second):
	}
	snap := ctrl.Snapshot()
	fmt.Print(renderScreen(snap.Display()))
	for _, raw := range snap.TransparentData() {
		fmt.Print(codec.ArtDump(raw))
	}
}

// runInteractive puts stdin in raw mode and translates keystrokes into
// Controller calls until ctx is cancelled or stdin closes. Grounded on
// cmd/debug-tui/main.go's MakeRaw/Restore/single-byte-read shape.
func runInteractive(ctx context.Context, ctrl *controller.Controller) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("stdin is not a terminal; rerun with -dump for non-interactive output")
	}
	old, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("enabling raw mode: %w", err)
	}
	defer term.Restore(fd, old)

	redraw(ctrl)

	buf := make([]byte, 16)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := os.Stdin.Read(buf)
		if err != nil {
			return err
		}
		for _, b := range buf[:n] {
			if quit := dispatchKey(ctrl, b); quit {
				return nil
			}
		}
		redraw(ctrl)
	}
}

// dispatchKey applies one raw input byte to ctrl, returning true if the
// session should end (Ctrl-] is the local "quit" escape, since a real
// 5250 keyboard has no quit key of its own).
func dispatchKey(ctrl *controller.Controller, b byte) bool {
	var err error
	switch b {
	case 0x1d: // Ctrl-]
		return true
	case '\r', '\n':
		err = ctrl.FunctionKey(session.AIDEnter)
	case '\t':
		err = ctrl.Tab()
	case 0x7f, 0x08: // DEL / BS
		err = ctrl.Backspace()
	case 0x0c: // Ctrl-L: delete the character under the cursor
		err = ctrl.Delete()
	default:
		if b >= 0x20 && b < 0x7f {
			err = ctrl.Type(rune(b))
		}
	}
	if err != nil {
		logging.Debug("tn5250r: key %#x: %v", b, err)
	}
	return false
}

// redraw repaints the whole screen. Busy/full redraws are acceptable
// here since it only runs after a local keystroke, never on every
// inbound byte from the host.
func redraw(ctrl *controller.Controller) {
	fmt.Print("\x1b[2J\x1b[H")
	fmt.Print(renderScreen(ctrl.Snapshot().Display()))
}

var (
	protectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	inputStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
)

// renderScreen renders buf into one lipgloss-styled string, one line
// per display row. Each row is styled as a whole: dimmed when the last
// field attribute on that row is protected (non-enterable), bright
// white otherwise — a row-level form of the same two-tier
// distinction usereditor/colors.go's dosStyle draws from a DOS
// attribute byte, simplified to the one bit this renderer needs.
func renderScreen(buf *display.Buffer) string {
	rows, cols := buf.Dimensions()
	var out strings.Builder
	for r := 0; r < rows; r++ {
		var line strings.Builder
		protected := false
		for c := 0; c < cols; c++ {
			addr := buf.Address(r, c)
			cell, err := buf.Cell(addr)
			if err != nil {
				continue
			}
			if cell.IsAttr {
				protected = cell.Attr&display.AttrProtected != 0
				line.WriteByte(' ')
				continue
			}
			line.WriteRune(cell.Char)
		}
		style := inputStyle
		if protected {
			style = protectedStyle
		}
		out.WriteString(style.Render(line.String()))
		out.WriteByte('\n')
	}
	return out.String()
}
