package cmd

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cerita/nobat/internal/client"
	"github.com/cerita/nobat/internal/config"
	"github.com/cerita/nobat/internal/model"
	"github.com/cerita/nobat/internal/util"
	"github.com/cerita/nobat/internal/view"
)

var consoleTel string

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive operator console against a running API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		tokenFile := cfg.Client.TokenFile
		if tokenFile == "" {
			home, _ := os.UserHomeDir()
			tokenFile = filepath.Join(home, ".nobat", "session")
		}

		session := client.NewSession("")
		api := client.New(cfg.Client.BaseURL, session, &http.Client{})
		ctrl := view.NewController(api, session, &view.FileStore{Path: tokenFile})

		return runConsole(cmd.Context(), ctrl)
	},
}

func init() {
	consoleCmd.Flags().StringVar(&consoleTel, "tel", "", "pre-fill the creation form with this phone number")
}

var (
	headerColor = color.New(color.FgYellow, color.Bold)
	timeColor   = color.New(color.FgCyan)
	errColor    = color.New(color.FgRed)
	okColor     = color.New(color.FgGreen)
)

func runConsole(ctx context.Context, ctrl *view.Controller) error {
	ctrl.Mount(ctx, consoleTel)
	consoleTel = "" // consumed once, like the stripped ?tel= query

	in := bufio.NewScanner(os.Stdin)
	for {
		render(ctrl)
		fmt.Print("> ")
		if !in.Scan() {
			return in.Err()
		}
		line := strings.TrimSpace(in.Text())
		cmdWord, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		if ctrl.LoginPromptShown() && cmdWord != "login" && cmdWord != "quit" && cmdWord != "q" {
			errColor.Println("not logged in; use: login <user-id>")
			continue
		}

		switch cmdWord {
		case "", "list", "l":
			ctrl.Refresh(ctx)
		case "next", "n":
			ctrl.NextDay(ctx)
		case "prev", "p":
			ctrl.PrevDay(ctx)
		case "login":
			ctrl.Login(ctx, rest)
		case "logout":
			if !ctrl.Logout() {
				fmt.Println("run logout again to confirm")
			}
		case "new":
			ctrl.OpenForm()
			promptDraft(in, ctrl)
			ctrl.SubmitCreate(ctx, false)
		case "edit":
			if t, ok := pickTurn(ctrl, rest); ok {
				ctrl.SelectTurn(t)
				promptDraft(in, ctrl)
				ctrl.SubmitEdit(ctx)
			}
		case "del":
			if t, ok := pickTurn(ctrl, rest); ok {
				ctrl.SelectTurn(t)
				ctrl.Delete(ctx)
			}
		case "sms":
			if t, ok := pickTurn(ctrl, rest); ok {
				ctrl.Notify(ctx, t)
			}
		case "close":
			ctrl.CloseForm(false)
		case "quit", "q":
			return nil
		default:
			fmt.Println("commands: list next prev new edit <n> del <n> sms <n> login <id> logout quit")
		}
	}
}

func render(ctrl *view.Controller) {
	if msg := ctrl.Err(); msg != "" {
		errColor.Printf("! %s\n", msg)
		ctrl.DismissError()
	}
	if ctrl.LoginPromptShown() {
		headerColor.Println("* ثبت شناسه کاربری *")
		return
	}

	day := ctrl.Day()
	if day == nil {
		return
	}
	headerColor.Printf("%s %s %s\n", day.Day, util.ToPersianDigits(day.FaDate), day.Month)

	for i, t := range ctrl.Turns() {
		mark := " "
		if t.Status.Has(model.FlagCommentSMS) {
			mark = okColor.Sprint("✓")
		}
		timeColor.Printf("%2d) %s ", i+1, util.ToPersianDigits(t.Slot.Time))
		fmt.Printf("%s %s %s\n", t.RefPhone, t.RefName, mark)
	}
	if len(ctrl.Turns()) == 0 {
		fmt.Println("نوبتی ثبت نشده است !")
	}
}

// pickTurn resolves a 1-based list index typed by the operator.
func pickTurn(ctrl *view.Controller, arg string) (model.Turn, bool) {
	turns := ctrl.Turns()
	i, err := strconv.Atoi(arg)
	if err != nil || i < 1 || i > len(turns) {
		errColor.Printf("no such turn: %q\n", arg)
		return model.Turn{}, false
	}
	return turns[i-1], true
}

// promptDraft walks the form fields, keeping the current draft value when the
// operator just presses enter.
func promptDraft(in *bufio.Scanner, ctrl *view.Controller) {
	d := ctrl.CurrentDraft()

	if v, ok := promptField(in, "phone", d.Phone); ok {
		ctrl.SetDraftPhone(v)
	}
	fmt.Printf("slots: %s ... %s\n", view.TimeSlots()[0], view.TimeSlots()[len(view.TimeSlots())-1])
	if v, ok := promptField(in, "time", d.Time); ok {
		ctrl.SetDraftTime(v)
	}
	if v, ok := promptField(in, "name", d.Name); ok {
		ctrl.SetDraftName(v)
	}
	if v, ok := promptField(in, "description", d.Description); ok {
		ctrl.SetDraftDescription(v)
	}
}

func promptField(in *bufio.Scanner, label, current string) (string, bool) {
	if current != "" {
		fmt.Printf("%s [%s]: ", label, current)
	} else {
		fmt.Printf("%s: ", label)
	}
	if !in.Scan() {
		return "", false
	}
	v := strings.TrimSpace(in.Text())
	if v == "" {
		return "", false
	}
	return v, true
}
