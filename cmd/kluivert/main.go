package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"Kluivert-Agent/internal/agent"
	"Kluivert-Agent/internal/app"
	"Kluivert-Agent/internal/config"
	"Kluivert-Agent/internal/driver"
	xerrors "Kluivert-Agent/internal/errors"
	"Kluivert-Agent/internal/session"
	"Kluivert-Agent/pkg/logger"
)

const separator = "-------------------"

var (
	agentColor = color.New(color.FgGreen)
	toolColor  = color.New(color.FgCyan)
	errorColor = color.New(color.FgRed, color.Bold)
	hintColor  = color.New(color.FgYellow)
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := app.LoadEnvFiles(); err != nil {
		return err
	}
	creds, warnings, err := config.ValidateEnvironment(os.LookupEnv)
	if err != nil {
		app.ReportMissing(os.Stderr, err)
		if xerrors.IsFatal(err) {
			os.Exit(1)
		}
		return err
	}
	for _, w := range warnings {
		hintColor.Fprintf(os.Stderr, "Warning: %s\n", w)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	mode, err := chooseMode(rl)
	if err != nil {
		return err
	}

	a, err := app.Bootstrap(ctx, creds, app.ConfigPath())
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Println("Starting Agent...")
	switch mode {
	case "chat":
		return runChat(ctx, rl, driver.NewChat(a.Factory))
	default:
		cfg := a.Config.Agent
		auto := driver.NewAutonomous(a.Factory,
			driver.WithPrompt(cfg.AutonomousPrompt),
			driver.WithInterval(cfg.AutonomousInterval()),
			driver.WithPublisher(a.Publisher),
			driver.WithAutonomousTurnOptions(session.WithChunkObserver(printChunk)),
		)
		return auto.Run(ctx)
	}
}

// chooseMode 询问运行模式，输入无效时重复询问。
func chooseMode(rl *readline.Instance) (string, error) {
	for {
		fmt.Println("\nAvailable modes:")
		fmt.Println("1. chat    - Interactive chat mode")
		fmt.Println("2. auto    - Autonomous action mode")
		rl.SetPrompt("\nChoose a mode (enter number or name): ")
		line, err := rl.Readline()
		if err != nil {
			return "", err
		}
		if mode, ok := parseMode(line); ok {
			return mode, nil
		}
		errorColor.Println("Invalid choice. Please try again.")
	}
}

func parseMode(input string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "1", "chat":
		return "chat", true
	case "2", "auto":
		return "auto", true
	default:
		return "", false
	}
}

func runChat(ctx context.Context, rl *readline.Instance, chat *driver.Chat) error {
	var transcript session.Transcript
	fmt.Println("Starting chat mode... Type 'exit' to end.")
	rl.SetPrompt("\nPrompt: ")
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if strings.EqualFold(strings.TrimSpace(line), "exit") {
			return nil
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		transcript.Append(session.RoleUser, line)
		reply, err := chat.Send(ctx, line, session.WithChunkObserver(printChunk))
		if err != nil {
			transcript.Append(session.RoleError, err.Error())
			return err
		}
		transcript.Append(session.RoleAgent, reply)
	}
}

func printChunk(chunk agent.StreamChunk, text string) {
	switch chunk.(type) {
	case agent.ToolsChunk:
		toolColor.Println(text)
	default:
		agentColor.Println(text)
	}
	fmt.Println(separator)
}
