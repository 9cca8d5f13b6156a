package chatbot

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"WeatherChat/internal/session"
)

type styles struct {
	header  lipgloss.Style
	user    lipgloss.Style
	bot     lipgloss.Style
	err     lipgloss.Style
	weather lipgloss.Style
	warning lipgloss.Style
}

func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	return styles{
		header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("62")),
		user:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		bot:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		err:     r.NewStyle().Foreground(lipgloss.Color("196")),
		weather: r.NewStyle().Foreground(lipgloss.Color("243")),
		warning: r.NewStyle().Bold(true).Foreground(lipgloss.Color("208")),
	}
}

// REPL is the terminal front-end. It owns exactly one session at a time.
type REPL struct {
	bot     *Bot
	newSess func() *session.Session
	sess    *session.Session
	in      io.Reader
	out     io.Writer
	st      styles
}

// NewREPL creates a terminal loop reading from in and writing to out.
func NewREPL(bot *Bot, newSession func() *session.Session, in io.Reader, out io.Writer) *REPL {
	return &REPL{
		bot:     bot,
		newSess: newSession,
		sess:    newSession(),
		in:      in,
		out:     out,
		st:      newStyles(out),
	}
}

// Session returns the current session.
func (r *REPL) Session() *session.Session {
	return r.sess
}

// Run starts the chat loop. It returns when input ends, a quit command is
// entered or ctx is cancelled. Failed turns are printed and the loop goes on.
func (r *REPL) Run(ctx context.Context) error {
	fmt.Fprintln(r.out, r.st.header.Render("=== WeatherChat ==="))
	fmt.Fprintf(r.out, "Session: %s\n", r.sess.ID)
	fmt.Fprintf(r.out, "Backend: %s\n", r.bot.BackendName())
	if loc := r.sess.Location(); loc != "" {
		fmt.Fprintf(r.out, "Location: %s\n", loc)
	} else {
		fmt.Fprintln(r.out, "No location set. Use /location <city> to add weather to your questions.")
	}
	fmt.Fprintln(r.out, "Type /help for commands, /quit to exit")
	fmt.Fprintln(r.out)

	scanner := bufio.NewScanner(r.in)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fmt.Fprint(r.out, r.st.user.Render("You:")+" ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			shouldQuit, err := r.handleCommand(ctx, input)
			if err != nil {
				fmt.Fprintln(r.out, r.st.err.Render("Error: "+err.Error()))
			}
			if shouldQuit {
				break
			}
			continue
		}

		result, err := r.bot.Turn(ctx, r.sess, input)
		if result.WeatherErr != nil {
			fmt.Fprintln(r.out, r.st.weather.Render("(weather unavailable: "+UserMessage(result.WeatherErr)+")"))
		}
		if err != nil {
			fmt.Fprintln(r.out, r.st.err.Render("Error: "+UserMessage(err)))
			continue
		}

		fmt.Fprintf(r.out, "%s %s\n\n", r.st.bot.Render("Bot:"), result.Reply)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(r.out, "Goodbye!")
	return nil
}

// handleCommand handles special commands
func (r *REPL) handleCommand(ctx context.Context, cmd string) (bool, error) {
	name, arg, _ := strings.Cut(cmd, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit":
		return true, nil

	case "/new-session":
		r.sess = r.newSess()
		fmt.Fprintln(r.out, "Started new session:", r.sess.ID)
		return false, nil

	case "/location":
		if arg == "" {
			return false, fmt.Errorf("usage: /location <city[,country]>")
		}
		r.bot.SetLocation(r.sess, arg)
		fmt.Fprintf(r.out, "Location set to %s\n", arg)
		return false, nil

	case "/crop":
		if arg == "" {
			return false, fmt.Errorf("usage: /crop <name>")
		}
		r.bot.SetCrop(r.sess, arg)
		fmt.Fprintf(r.out, "Crop set to %s\n", arg)
		return false, nil

	case "/weather":
		snap, err := r.bot.Weather(ctx, r.sess)
		if err != nil && snap == nil {
			return false, fmt.Errorf("%s", UserMessage(err))
		}
		if snap == nil {
			fmt.Fprintln(r.out, "No location set. Use /location <city>.")
			return false, nil
		}
		fmt.Fprintln(r.out, r.st.weather.Render(snap.Describe()))
		for _, day := range snap.Forecast {
			line := fmt.Sprintf("  %s  %-7s %5.1f°C  wind %4.1f m/s  %3.0f%%", day.Date, day.Condition, day.Temperature, day.WindSpeed, day.PrecipChance*100)
			if day.IsExtreme {
				line = r.st.warning.Render(line + "  !")
			}
			fmt.Fprintln(r.out, line)
		}
		if snap.IsExtreme {
			causes := make([]string, 0, len(snap.Warnings)+len(snap.ExtremeDays))
			causes = append(causes, snap.Warnings...)
			causes = append(causes, snap.ExtremeDays...)
			fmt.Fprintln(r.out, r.st.warning.Render("Extreme weather: "+strings.Join(causes, ", ")))
		}
		return false, nil

	case "/history":
		history := r.sess.History()
		if len(history) == 0 {
			fmt.Fprintln(r.out, "No messages yet.")
			return false, nil
		}
		for _, msg := range history {
			label := r.st.user.Render("You:")
			if msg.Role == session.RoleAssistant {
				label = r.st.bot.Render("Bot:")
			}
			fmt.Fprintf(r.out, "[%s] %s %s\n", msg.Timestamp.Format("15:04:05"), label, msg.Content)
		}
		return false, nil

	case "/help":
		fmt.Fprintln(r.out, "Available commands:")
		fmt.Fprintln(r.out, "  /quit, /exit              - Exit the chatbot")
		fmt.Fprintln(r.out, "  /new-session              - Start a new chat session")
		fmt.Fprintln(r.out, "  /location <city>          - Set the weather location")
		fmt.Fprintln(r.out, "  /crop <name>              - Set the crop you want advice on")
		fmt.Fprintln(r.out, "  /weather                  - Show current weather and forecast")
		fmt.Fprintln(r.out, "  /history                  - Show this session's transcript")
		fmt.Fprintln(r.out, "  /help                     - Show this help message")
		return false, nil

	default:
		return false, fmt.Errorf("unknown command: %s (try /help)", name)
	}
}
