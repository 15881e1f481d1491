package console

import (
	"fmt"
	"io"

	"github.com/pixil98/go-crowd/internal/display"
	"github.com/pixil98/go-crowd/internal/sim"
	"github.com/pixil98/go-crowd/internal/storage"
)

const helpText = `commands:
  stats                     simulation summary
  targets                   list registered targets
  target <id>               show one target in detail
  visitors                  list visitors and their states
  events                    tail the event stream, enter to stop
  stop [id]                 halt one visitor, or all
  resume [id]               resume one visitor, or all
  spawn [profile] [point]   spawn a visitor, interactively if no profile given
  remove <id>               remove a visitor
  quit                      close this session
`

const statsTemplate = `visitors: {{ .Visitors }} ({{ .Moving }} moving, {{ .Waiting }} waiting, {{ .Idle }} idle)
targets:  {{ .Targets }}
`

const targetTemplate = `{{ .Id }}: {{ .Name }}
  position:  ({{ .X }}, {{ .Y }}, {{ .Z }})
  weight:    {{ .Weight }}
  occupancy: {{ .Occupancy }}{{ if .Exclusive }} (exclusive){{ else if gt .MaxOccupancy 0 }}/{{ .MaxOccupancy }}{{ end }}
  wait:      {{ .MinWait }} to {{ .MaxWait }}
`

// targetReport flattens a target snapshot for template expansion.
type targetReport struct {
	Id           storage.Identifier
	Name         string
	X, Y, Z      float64
	Weight       float64
	Occupancy    int
	Exclusive    bool
	MaxOccupancy int
	MinWait      string
	MaxWait      string
}

func newTargetReport(r sim.TargetReport) targetReport {
	return targetReport{
		Id:           r.Id,
		Name:         display.Capitalize(r.Name),
		X:            r.Position.X,
		Y:            r.Position.Y,
		Z:            r.Position.Z,
		Weight:       r.Weight,
		Occupancy:    r.Occupancy,
		Exclusive:    r.Exclusive,
		MaxOccupancy: r.MaxOccupancy,
		MinWait:      r.MinWait.String(),
		MaxWait:      r.MaxWait.String(),
	}
}

func (m *Monitor) showStats(conn io.Writer) error {
	out, err := display.ExpandTemplate(statsTemplate, m.co.Statistics())
	if err != nil {
		return err
	}
	_, err = conn.Write([]byte(out))
	return err
}

func (m *Monitor) showTargets(conn io.Writer) error {
	targets := m.co.TargetReports()
	if len(targets) == 0 {
		_, err := conn.Write([]byte("no targets registered\n"))
		return err
	}

	for _, t := range targets {
		r := newTargetReport(t)
		fmt.Fprintf(conn, "%-20s %-20s weight %.1f  occupancy %d\n", r.Id, r.Name, r.Weight, r.Occupancy)
	}
	return nil
}

func (m *Monitor) showTarget(conn io.Writer, id storage.Identifier) error {
	t, ok := m.co.TargetReport(id)
	if !ok {
		return fmt.Errorf("no target with id %q", id)
	}

	out, err := display.ExpandTemplate(targetTemplate, newTargetReport(t))
	if err != nil {
		return err
	}
	_, err = conn.Write([]byte(display.Wrap(out)))
	return err
}

func (m *Monitor) showVisitors(conn io.Writer) error {
	visitors := m.co.VisitorReports()
	if len(visitors) == 0 {
		_, err := conn.Write([]byte("no visitors registered\n"))
		return err
	}

	for _, v := range visitors {
		target := "-"
		if v.Target != "" {
			target = string(v.Target)
		}
		fmt.Fprintf(conn, "%-36s %-12s %-8s -> %s\n", v.InstanceId, v.Profile, v.State, target)
	}
	return nil
}
