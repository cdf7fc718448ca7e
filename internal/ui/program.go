package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/gh-notifier/internal/source"
	"github.com/nhle/gh-notifier/internal/sync"
)

// BatchMsg carries a delivered batch into the Bubble Tea program.
type BatchMsg struct {
	Batch sync.Batch
}

// CadenceMsg reports a cadence change.
type CadenceMsg struct {
	Account string
	Change  sync.CadenceChange
}

// FetchFailedMsg reports a failed poll cycle.
type FetchFailedMsg struct {
	Account string
	Err     *source.FetchError
}

// DeliveryErrorMsg reports a sink failure other than the program itself.
type DeliveryErrorMsg struct {
	BatchID string
	Err     error
}

// Sender is the subset of *tea.Program used to push messages.
type Sender interface {
	Send(msg tea.Msg)
}

// ProgramSink forwards poll loop events to a running Bubble Tea program.
// It serves as both the batch sink and a reporter.
type ProgramSink struct {
	program Sender
}

// NewProgramSink returns a ProgramSink sending to p.
func NewProgramSink(p Sender) *ProgramSink {
	return &ProgramSink{program: p}
}

var (
	_ sync.Sink     = (*ProgramSink)(nil)
	_ sync.Reporter = (*ProgramSink)(nil)
)

// Deliver hands the batch to the program. tea.Program.Send blocks until the
// event loop accepts it, or returns immediately once the program has quit.
func (s *ProgramSink) Deliver(_ context.Context, batch sync.Batch) error {
	s.program.Send(BatchMsg{Batch: batch})
	return nil
}

func (s *ProgramSink) CadenceChanged(account string, change sync.CadenceChange) {
	s.program.Send(CadenceMsg{Account: account, Change: change})
}

func (s *ProgramSink) FetchFailed(account string, err *source.FetchError) {
	s.program.Send(FetchFailedMsg{Account: account, Err: err})
}

func (s *ProgramSink) BatchDelivered(batch sync.Batch, err error) {
	if err != nil {
		s.program.Send(DeliveryErrorMsg{BatchID: batch.ID, Err: err})
	}
}
