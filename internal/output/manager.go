package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Manager renders the state of one transfer. On a terminal it redraws a
// status line and a progress bar in place; on a pipe it prints only the
// final outcome.
type Manager struct {
	out         io.Writer
	mutex       sync.RWMutex
	label       string
	status      string
	message     string
	downloaded  int64
	total       int64
	startTime   time.Time
	lastUpdated time.Time
	live        bool
	quiet       bool
	started     bool
	numLines    int
	displayTick time.Duration
	doneCh      chan struct{}
	displayWg   sync.WaitGroup
}

func NewManager(out io.Writer, quiet bool) *Manager {
	return &Manager{
		out:         out,
		status:      "pending",
		total:       -1,
		live:        !quiet && isTerminal(out),
		quiet:       quiet,
		displayTick: 200 * time.Millisecond,
		doneCh:      make(chan struct{}),
	}
}

func (m *Manager) UpdateProgress(downloaded, total int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.downloaded = downloaded
	m.total = total
	m.lastUpdated = time.Now()
}

func (m *Manager) Complete(message string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if message == "" {
		message = fmt.Sprintf("Completed %s", m.label)
	}
	m.message = message
	m.status = "success"
	m.lastUpdated = time.Now()
}

func (m *Manager) ReportError(message string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if message == "" {
		message = fmt.Sprintf("Failed %s", m.label)
	}
	m.message = message
	m.status = "error"
	m.lastUpdated = time.Now()
}

func (m *Manager) GetStatusIndicator(status string) string {
	switch status {
	case "success":
		return successStyle.Render(StyleSymbols["pass"])
	case "error":
		return errorStyle.Render(StyleSymbols["fail"])
	case "pending":
		return pendingStyle.Render(StyleSymbols["pending"])
	default:
		return infoStyle.Render(StyleSymbols["bullet"])
	}
}

// lines builds the current view. Caller holds the lock.
func (m *Manager) lines(final bool) []string {
	elapsed := time.Since(m.startTime).Round(time.Second)
	if final && !m.lastUpdated.IsZero() {
		elapsed = m.lastUpdated.Sub(m.startTime).Round(time.Second)
	}
	message := m.message
	if message == "" {
		message = m.label
	}
	var styled string
	switch m.status {
	case "success":
		styled = successStyle.Render(message)
	case "error":
		styled = errorStyle.Render(message)
	default:
		styled = pendingStyle.Render(message)
	}
	view := []string{fmt.Sprintf("%s%s %s %s", strings.Repeat(" ", 2), m.GetStatusIndicator(m.status), FDebug(elapsed.String()), styled)}
	if final || m.downloaded == 0 {
		return view
	}

	speed := FormatSpeed(m.downloaded, time.Since(m.startTime).Seconds())
	var progress string
	if m.total > 0 {
		width := min(30, max(10, getTerminalWidth(m.out)-50))
		progress = PrintProgressBar(m.downloaded, m.total, width) +
			FDebug(fmt.Sprintf("%s / %s %s %s", FormatBytes(m.downloaded), FormatBytes(m.total), StyleSymbols["bullet"], speed))
	} else {
		progress = FDebug(fmt.Sprintf("%s %s %s", FormatBytes(m.downloaded), StyleSymbols["bullet"], speed))
	}
	return append(view, strings.Repeat(" ", 2+4)+progress)
}

func (m *Manager) updateDisplay(final bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.numLines > 0 {
		fmt.Fprintf(m.out, "\033[%dA\033[J", m.numLines)
	}
	view := m.lines(final)
	for _, line := range view {
		fmt.Fprintln(m.out, line)
	}
	m.numLines = len(view)
}

// StartDisplay begins tracking a transfer described by label.
func (m *Manager) StartDisplay(label string) {
	m.mutex.Lock()
	m.label = label
	m.startTime = time.Now()
	m.started = true
	m.mutex.Unlock()
	if !m.live {
		return
	}
	m.displayWg.Add(1)
	go func() {
		defer m.displayWg.Done()
		ticker := time.NewTicker(m.displayTick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.updateDisplay(false)
			case <-m.doneCh:
				return
			}
		}
	}()
}

// StopDisplay ends the live view and prints the final outcome line.
func (m *Manager) StopDisplay() {
	if !m.started {
		return
	}
	m.started = false
	close(m.doneCh)
	m.displayWg.Wait()
	if m.quiet {
		return
	}
	m.updateDisplay(true)
}
