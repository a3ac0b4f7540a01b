package agent

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/sipeed/picosearch/cmd/picosearch/internal"
	"github.com/sipeed/picosearch/pkg/agent"
	"github.com/sipeed/picosearch/pkg/config"
	"github.com/sipeed/picosearch/pkg/logger"
	"github.com/sipeed/picosearch/pkg/providers"
)

const prompt = "User: "

type agentOptions struct {
	message  string
	threadID string
	model    string
	debug    bool
	demo     bool
}

func agentCmd(ctx context.Context, opts agentOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if err := internal.SetupLogging(cfg, opts.debug); err != nil {
		return err
	}

	rt, err := internal.NewRuntime(ctx, cfg, opts.model)
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())

	threadID := opts.threadID
	if threadID == "" {
		threadID = cfg.Agent.ThreadID
	}

	chat := newChatSession(rt.Loop, threadID, os.Stdout)

	switch {
	case opts.message != "":
		return chat.runOnce(ctx, opts.message)
	case opts.demo:
		return chat.runOnce(ctx, cfg.Agent.DemoQuery)
	default:
		fmt.Printf("%s Interactive mode (type quit, exit or q to leave)\n\n", internal.Logo)
		return interactiveMode(ctx, chat, config.ResolveRuntimePaths().HistoryFile)
	}
}

// chatSession prints one "Assistant:" line for every message a turn
// produces, tool-call requests and tool results included.
type chatSession struct {
	loop     *agent.Loop
	threadID string
	out      io.Writer
}

func newChatSession(loop *agent.Loop, threadID string, out io.Writer) *chatSession {
	s := &chatSession{loop: loop, threadID: threadID, out: out}
	loop.SetObserver(s.printStep)
	return s
}

func (s *chatSession) printStep(msg providers.Message) {
	text := msg.Content
	switch msg.Role {
	case providers.RoleAssistant:
		calls := agent.FormatToolCalls(msg)
		for _, call := range calls {
			logger.InfoCF("agent", "Tool call requested", map[string]any{"call": call})
		}
		if text == "" {
			text = strings.Join(calls, ", ")
		}
	case providers.RoleTool:
		logger.DebugCF("agent", "Tool result appended",
			map[string]any{"tool": msg.Name, "tool_call_id": msg.ToolCallID})
	}
	fmt.Fprintf(s.out, "Assistant: %s\n", text)
}

func (s *chatSession) runOnce(ctx context.Context, input string) error {
	if _, err := s.loop.RunTurn(ctx, s.threadID, input); err != nil {
		return errors.New(agent.UserFriendlyError(err))
	}
	return nil
}

func isExitCommand(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "quit", "exit", "q":
		return true
	}
	return false
}

// lineReader abstracts readline and plain stdin so the REPL can be driven
// from tests.
type lineReader interface {
	ReadLine() (string, error)
}

type readlineReader struct {
	rl *readline.Instance
}

func (r readlineReader) ReadLine() (string, error) {
	line, err := r.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", io.EOF
	}
	return line, err
}

type bufioReader struct {
	reader *bufio.Reader
	out    io.Writer
}

func (r bufioReader) ReadLine() (string, error) {
	fmt.Fprint(r.out, prompt)
	line, err := r.reader.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return line, nil
}

func interactiveMode(ctx context.Context, chat *chatSession, historyFile string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFile,
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("Error initializing readline: %v\n", err)
		fmt.Println("Falling back to simple input mode...")
		return runREPL(ctx, bufioReader{reader: bufio.NewReader(os.Stdin), out: os.Stdout}, chat)
	}
	defer rl.Close()

	return runREPL(ctx, readlineReader{rl: rl}, chat)
}

// runREPL reads lines until an exit command or end of input. A failed turn is
// reported and the loop keeps going; nothing is ever substituted for the
// user's input.
func runREPL(ctx context.Context, in lineReader, chat *chatSession) error {
	for {
		line, err := in.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(chat.out, "\nGoodbye!")
				return nil
			}
			return fmt.Errorf("error reading input: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if isExitCommand(input) {
			fmt.Fprintln(chat.out, "Goodbye!")
			return nil
		}

		if err := chat.runOnce(ctx, input); err != nil {
			fmt.Fprintf(chat.out, "Error: %v\n", err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		fmt.Fprintln(chat.out)
	}
}
