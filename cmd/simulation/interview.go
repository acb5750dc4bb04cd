package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"ai-lifeplan-be/pkg/interview"
	"ai-lifeplan-be/pkg/interview/conversation"
	"ai-lifeplan-be/pkg/interview/extraction"
	"ai-lifeplan-be/pkg/interview/phase"
	"ai-lifeplan-be/pkg/interview/prompt"
	"ai-lifeplan-be/pkg/interview/ratelimit"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	startPhase    string
	mode          string
	scriptPath    string
	autoAdvance   bool
	runExtract    bool
	transcriptOut string
)

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Hold an interview on the terminal or from a script",
	Long: `Hold an interview with the configured completion provider.

Each input line is one user message. Two commands are understood:
  /next   move to the next phase
  /quit   stop the interview

With --script the lines are read from a file instead of the terminal.`,
	RunE: runInterview,
}

func init() {
	interviewCmd.Flags().StringVar(&startPhase, "phase", string(phase.Introduction), "phase to start in")
	interviewCmd.Flags().StringVar(&mode, "mode", "", "quick or deep")
	interviewCmd.Flags().StringVar(&scriptPath, "script", "", "file with one user message per line")
	interviewCmd.Flags().BoolVar(&autoAdvance, "auto-advance", false, "follow the assistant's phase suggestions")
	interviewCmd.Flags().BoolVar(&runExtract, "extract", false, "extract a plan when the interview ends")
	interviewCmd.Flags().StringVar(&transcriptOut, "save", "", "write the transcript as JSON to this file")
}

// unlimited lets every turn through; the terminal has one user.
type unlimited struct{}

func (unlimited) Check(ctx context.Context, userId string) ratelimit.Decision {
	return ratelimit.Decision{Allowed: true, Remaining: 1, Limit: 1}
}

type session struct {
	orchestrator *conversation.Orchestrator
	userId       string
	planId       string
	phase        phase.Phase
	mode         string
	autoAdvance  bool
	history      []interview.Message
	now          func() time.Time
}

func runInterview(cmd *cobra.Command, args []string) error {
	p, err := phase.Parse(startPhase)
	if err != nil {
		return err
	}
	completion, err := completionService()
	if err != nil {
		return err
	}
	log := cliLogger()

	rules, err := prompt.DefaultRules()
	if err != nil {
		return err
	}

	in := io.Reader(os.Stdin)
	if scriptPath != "" {
		f, err := os.Open(scriptPath)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	s := &session{
		orchestrator: conversation.NewOrchestrator(completion, prompt.NewAssembler(rules), unlimited{}, log, conversation.Config{}),
		userId:       uuid.NewString(),
		planId:       uuid.NewString(),
		phase:        p,
		mode:         mode,
		autoAdvance:  autoAdvance,
		now:          time.Now,
	}

	ctx := cmd.Context()
	if err := s.run(ctx, in, cmd.OutOrStdout()); err != nil {
		return err
	}

	if transcriptOut != "" {
		if err := saveTranscript(transcriptOut, s.history); err != nil {
			return err
		}
		dimColor.Fprintf(cmd.OutOrStdout(), "transcript saved to %s\n", transcriptOut)
	}

	if !runExtract {
		return nil
	}
	pipeline := extraction.NewPipeline(completion, log, extraction.Config{})
	res, err := pipeline.Extract(ctx, s.history, "")
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), res, outputFormat)
}

// run reads user lines until the input ends, /quit, or the terminal phase.
func (s *session) run(ctx context.Context, in io.Reader, out io.Writer) error {
	s.banner(out)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), interview.MaxMessageContentLen*4)
	for {
		if s.phase.Terminal() {
			return nil
		}
		userColor.Fprint(out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit":
			return nil
		case "/next":
			s.advance(out)
			continue
		}

		res, err := s.orchestrator.Turn(ctx, conversation.TurnInput{
			UserId:  s.userId,
			PlanId:  s.planId,
			Message: line,
			Phase:   s.phase.String(),
			Mode:    s.mode,
			History: s.history,
		})
		if err != nil {
			var verr *interview.ValidationError
			if errors.As(err, &verr) || interview.IsRetryable(err) {
				errorColor.Fprintf(out, "! %v\n", err)
				continue
			}
			return err
		}
		// the chosen mode sticks for the rest of the interview
		s.mode = string(res.Mode)

		s.history = append(s.history,
			interview.Message{Id: uuid.NewString(), Role: interview.RoleUser, Content: line, Timestamp: s.now()},
			interview.Message{Id: uuid.NewString(), Role: interview.RoleAssistant, Content: res.Message, Timestamp: s.now()},
		)
		assistantColor.Fprintf(out, "assistant> %s\n", res.Message)

		if res.SuggestedNextPhase != nil {
			if s.autoAdvance {
				s.advance(out)
			} else {
				dimColor.Fprintf(out, "(ready for %s, type /next to continue)\n", res.SuggestedNextPhase.Title())
			}
		}
	}
}

func (s *session) advance(out io.Writer) {
	next, ok, err := phase.Next(s.phase)
	if err != nil {
		errorColor.Fprintf(out, "! %v\n", err)
		return
	}
	if !ok {
		return
	}
	s.phase = next
	s.banner(out)
}

func (s *session) banner(out io.Writer) {
	phaseColor.Fprintf(out, "== %s (%d/%d) ==\n", s.phase.Title(), s.phase.Ordinal()+1, len(phase.All()))
}
