// Package speech turns announcement text into audio by shelling out to
// whatever TTS command the host has. Phrases are spoken one at a time
// through a single worker so overlapping announcements never talk over
// each other.
package speech

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"sync"
	"time"

	"github.com/brunosouza-justauto/lifttrack/internal/safe"
)

// Speaker speaks short phrases to the athlete.
type Speaker interface {
	// Say queues text for speaking. It never blocks; when the queue is
	// full the phrase is dropped, a stale announcement is worse than a
	// missing one.
	Say(text string)
	// Shutdown stops the worker. Queued phrases are discarded.
	Shutdown()
}

// NoopSpeaker discards everything. Used when voice output is disabled or
// no TTS command exists on the host.
type NoopSpeaker struct{}

func (NoopSpeaker) Say(string) {}

func (NoopSpeaker) Shutdown() {}

// candidates are probed in order by Detect. Each entry is a command with
// the fixed arguments it needs to speak its final argument.
var candidates = []struct {
	name string
	args []string
}{
	{"say", nil},
	{"espeak-ng", nil},
	{"espeak", nil},
	{"spd-say", []string{"--wait"}},
}

// Detect finds a usable TTS command on PATH. Returns the command name and
// its fixed arguments, or an error when the host has none of the known
// commands.
func Detect() (string, []string, error) {
	for _, c := range candidates {
		if _, err := exec.LookPath(c.name); err == nil {
			return c.name, c.args, nil
		}
	}
	return "", nil, fmt.Errorf("no TTS command found, tried say, espeak-ng, espeak, spd-say")
}

const (
	queueSize    = 16
	speakTimeout = 15 * time.Second
)

// CommandSpeaker speaks by running an external command per phrase.
type CommandSpeaker struct {
	command string
	args    []string
	logger  *log.Logger
	queue   chan string
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	once    sync.Once

	// runCmd runs one utterance. Swapped out by tests.
	runCmd func(ctx context.Context, name string, args []string) error
}

// NewCommandSpeaker creates a speaker around the given command, or the
// first detected TTS command when command is empty. The command must be
// on PATH.
func NewCommandSpeaker(command string, logger *log.Logger) (*CommandSpeaker, error) {
	if logger == nil {
		panic("CommandSpeaker: logger cannot be nil")
	}

	var args []string
	if command == "" {
		detected, detectedArgs, err := Detect()
		if err != nil {
			return nil, err
		}
		command, args = detected, detectedArgs
	} else if _, err := exec.LookPath(command); err != nil {
		return nil, fmt.Errorf("voice command %q: %w", command, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &CommandSpeaker{
		command: command,
		args:    args,
		logger:  logger,
		queue:   make(chan string, queueSize),
		ctx:     ctx,
		cancel:  cancel,
		runCmd: func(ctx context.Context, name string, args []string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}

	s.wg.Add(1)
	safe.Go(s.logger, "speech-worker", s.run)

	s.logger.Printf("Speech: Using %s", s.command)
	return s, nil
}

func (s *CommandSpeaker) Say(text string) {
	if text == "" {
		return
	}
	select {
	case s.queue <- text:
	default:
		s.logger.Printf("Speech: Queue full, dropping %q", text)
	}
}

func (s *CommandSpeaker) Shutdown() {
	s.once.Do(func() {
		s.logger.Println("Speech: Shutting down")
		s.cancel()
		s.wg.Wait()
		s.logger.Println("Speech: Shutdown complete")
	})
}

func (s *CommandSpeaker) run() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case text := <-s.queue:
			s.speak(text)
		}
	}
}

// speak runs one utterance with a deadline so a wedged TTS command
// cannot stall the queue forever.
func (s *CommandSpeaker) speak(text string) {
	ctx, cancel := context.WithTimeout(s.ctx, speakTimeout)
	defer cancel()

	args := append(append([]string(nil), s.args...), text)
	if err := s.runCmd(ctx, s.command, args); err != nil {
		if s.ctx.Err() != nil {
			return
		}
		s.logger.Printf("Speech: %s failed: %v", s.command, err)
	}
}
