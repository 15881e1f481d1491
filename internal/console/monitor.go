package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/pixil98/go-crowd/internal"
	"github.com/pixil98/go-crowd/internal/messaging"
	"github.com/pixil98/go-crowd/internal/sim"
	"github.com/pixil98/go-crowd/internal/space"
	"github.com/pixil98/go-crowd/internal/storage"
)

const banner = `crowd simulation monitor
type 'help' for commands
`

// errQuit signals a clean session exit from a command.
var errQuit = errors.New("quit")

// EventStream tails messages published under a subject. Implemented by the
// embedded messaging server.
type EventStream interface {
	Subscribe(subject string, handler func(data []byte)) (func(), error)
}

// Monitor serves an interactive inspection session over a connection. Each
// connection gets its own session; all sessions share one coordinator.
type Monitor struct {
	co       *sim.Coordinator
	spawner  *sim.Spawner
	scenario *sim.Scenario
	profiles *storage.SelectableStorer[*sim.Visitor]
	events   EventStream
}

func NewMonitor(co *sim.Coordinator, spawner *sim.Spawner, scenario *sim.Scenario, profiles storage.Storer[*sim.Visitor], events EventStream) *Monitor {
	m := &Monitor{
		co:       co,
		spawner:  spawner,
		scenario: scenario,
		events:   events,
	}
	if profiles != nil {
		m.profiles = storage.NewSelectableStorer(profiles)
	}
	return m
}

// RunSession runs the command loop until the peer quits or disconnects.
func (m *Monitor) RunSession(ctx context.Context, conn io.ReadWriter) error {
	// Prompt buffers reads per call, so hand it a reader that yields one
	// line at a time. Input arriving between prompts is not dropped.
	rw := newLineConn(conn)

	if _, err := rw.Write([]byte(banner)); err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line, err := internal.Prompt(rw, "> ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if err := m.dispatch(ctx, rw, line); err != nil {
			if errors.Is(err, errQuit) {
				rw.Write([]byte("bye\n"))
				return nil
			}
			fmt.Fprintf(rw, "error: %s\n", err)
		}
	}
}

// lineConn yields exactly one input line per Read so that every Prompt call
// sees the next line regardless of how input is chunked on the wire.
type lineConn struct {
	sc *bufio.Scanner
	w  io.Writer
}

func newLineConn(conn io.ReadWriter) *lineConn {
	return &lineConn{
		sc: bufio.NewScanner(conn),
		w:  conn,
	}
}

func (c *lineConn) Read(p []byte) (int, error) {
	if !c.sc.Scan() {
		if err := c.sc.Err(); err != nil {
			return 0, err
		}
		return 0, io.EOF
	}
	return copy(p, append(c.sc.Bytes(), '\n')), nil
}

func (c *lineConn) Write(p []byte) (int, error) {
	return c.w.Write(p)
}

func (m *Monitor) dispatch(ctx context.Context, conn io.ReadWriter, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "help", "?":
		_, err := conn.Write([]byte(helpText))
		return err

	case "stats":
		return m.showStats(conn)

	case "targets":
		return m.showTargets(conn)

	case "visitors":
		return m.showVisitors(conn)

	case "events":
		return m.tailEvents(conn)

	case "target":
		if len(args) != 1 {
			return fmt.Errorf("usage: target <id>")
		}
		return m.showTarget(conn, storage.Identifier(args[0]))

	case "stop":
		return m.stop(ctx, conn, args)

	case "resume":
		return m.resume(ctx, conn, args)

	case "spawn":
		return m.spawn(ctx, conn, args)

	case "remove":
		return m.remove(ctx, conn, args)

	case "quit", "exit":
		return errQuit

	default:
		return fmt.Errorf("unknown command %q, type 'help'", cmd)
	}
}

func (m *Monitor) stop(ctx context.Context, conn io.ReadWriter, args []string) error {
	if len(args) == 0 {
		m.co.StopAll()
		slog.InfoContext(ctx, "simulation stopped from console")
		_, err := conn.Write([]byte("all visitors stopped\n"))
		return err
	}

	if err := m.co.StopVisitor(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(conn, "visitor %s stopped\n", args[0])
	return nil
}

func (m *Monitor) resume(ctx context.Context, conn io.ReadWriter, args []string) error {
	if len(args) == 0 {
		m.co.ResumeAll(ctx)
		slog.InfoContext(ctx, "simulation resumed from console")
		_, err := conn.Write([]byte("all visitors resumed\n"))
		return err
	}

	if err := m.co.ResumeVisitor(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(conn, "visitor %s resumed\n", args[0])
	return nil
}

func (m *Monitor) spawn(ctx context.Context, conn io.ReadWriter, args []string) error {
	if len(args) > 2 {
		return fmt.Errorf("usage: spawn [profile] [spawn-point]")
	}

	var profile storage.Identifier
	if len(args) > 0 {
		profile = storage.Identifier(args[0])
	} else {
		// No profile given: offer the menu.
		if m.profiles == nil {
			return fmt.Errorf("usage: spawn <profile> [spawn-point]")
		}
		id, err := m.profiles.Prompt(conn, "available profiles:")
		if err != nil {
			return err
		}
		profile = id
	}

	point := ""
	if len(args) == 2 {
		point = args[1]
	}

	at := space.Point{}
	if m.scenario != nil {
		p, err := m.scenario.SpawnPoint(point)
		if err != nil {
			return err
		}
		at = p
	}

	v, err := m.spawner.SpawnById(profile, at)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "visitor spawned from console", "visitor", v.InstanceId, "profile", profile)
	fmt.Fprintf(conn, "spawned %s\n", v.InstanceId)
	return nil
}

func (m *Monitor) remove(ctx context.Context, conn io.ReadWriter, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: remove <id>")
	}

	id := args[0]
	if m.co.Visitor(id) == nil {
		return fmt.Errorf("%w: %s", sim.ErrVisitorNotFound, id)
	}

	ok, err := internal.PromptYN(conn, fmt.Sprintf("remove visitor %s? ", id))
	if err != nil {
		return err
	}
	if !ok {
		conn.Write([]byte("aborted\n"))
		return nil
	}

	m.co.RemoveVisitor(id)
	slog.InfoContext(ctx, "visitor removed from console", "visitor", id)
	fmt.Fprintf(conn, "removed %s\n", id)
	return nil
}

// tailEvents streams published events into the session until the peer sends
// a line. Events arrive from the tick goroutine, so nothing here touches
// simulation state directly.
func (m *Monitor) tailEvents(conn io.ReadWriter) error {
	if m.events == nil {
		return fmt.Errorf("event stream unavailable")
	}

	unsubscribe, err := m.events.Subscribe(messaging.EventSubjects, func(data []byte) {
		fmt.Fprintf(conn, "%s\n", data)
	})
	if err != nil {
		return err
	}
	defer unsubscribe()

	if _, err := conn.Write([]byte("tailing events, press enter to stop\n")); err != nil {
		return err
	}

	if _, err := internal.Prompt(conn, ""); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
