package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/dyike/audney/internal/auth"
	"github.com/dyike/audney/internal/models"
)

// PromptForRegistration asks for the sign-up fields.
func PromptForRegistration() (auth.RegisterRequest, error) {
	goals := models.FinancialGoals()
	goalLabels := make([]string, len(goals))
	for i, g := range goals {
		goalLabels[i] = g.Label()
	}

	answers := struct {
		Username    string
		Password    string
		DateOfBirth string
		Goal        int
		City        string
		State       string
	}{}

	questions := []*survey.Question{
		{
			Name:     "username",
			Prompt:   &survey.Input{Message: "Username:"},
			Validate: survey.Required,
		},
		{
			Name:     "password",
			Prompt:   &survey.Password{Message: "Password (at least 8 characters):"},
			Validate: survey.MinLength(8),
		},
		{
			Name:   "dateofbirth",
			Prompt: &survey.Input{Message: "Date of birth (YYYY-MM-DD, optional):"},
			Validate: func(val interface{}) error {
				str := strings.TrimSpace(val.(string))
				if str == "" {
					return nil
				}
				if _, err := time.Parse("2006-01-02", str); err != nil {
					return fmt.Errorf("invalid date format, use YYYY-MM-DD")
				}
				return nil
			},
		},
		{
			Name:   "goal",
			Prompt: &survey.Select{Message: "Primary financial goal:", Options: goalLabels},
		},
		{
			Name:   "city",
			Prompt: &survey.Input{Message: "City:", Help: "Used to look up local income and housing figures"},
		},
		{
			Name:   "state",
			Prompt: &survey.Input{Message: "State (two-letter code):"},
		},
	}

	if err := survey.Ask(questions, &answers); err != nil {
		return auth.RegisterRequest{}, err
	}
	return auth.RegisterRequest{
		Username:      answers.Username,
		Password:      answers.Password,
		DateOfBirth:   answers.DateOfBirth,
		FinancialGoal: goals[answers.Goal],
		City:          answers.City,
		State:         strings.ToUpper(strings.TrimSpace(answers.State)),
	}, nil
}

// PromptForCredentials asks for the username when it was not given as a
// flag, then for the password.
func PromptForCredentials(username string) (string, string, error) {
	if username == "" {
		if err := survey.AskOne(&survey.Input{Message: "Username:"}, &username, survey.WithValidator(survey.Required)); err != nil {
			return "", "", err
		}
	}
	var password string
	if err := survey.AskOne(&survey.Password{Message: "Password:"}, &password); err != nil {
		return "", "", err
	}
	return username, password, nil
}

// PromptForCandidate lets the user pick one ticker from a candidate list.
func PromptForCandidate(candidates []models.SymbolMatch) (models.SymbolMatch, bool, error) {
	options := make([]string, 0, len(candidates)+1)
	for _, c := range candidates {
		options = append(options, fmt.Sprintf("%s (%s)", c.Name, c.Symbol))
	}
	options = append(options, "None of these")

	var idx int
	if err := survey.AskOne(&survey.Select{Message: "Which company did you mean?", Options: options}, &idx); err != nil {
		return models.SymbolMatch{}, false, err
	}
	if idx >= len(candidates) {
		return models.SymbolMatch{}, false, nil
	}
	return candidates[idx], true, nil
}

// runInteractiveChat logs in and loops over user messages until exit.
func runInteractiveChat(ctx context.Context, app *App, username string) error {
	username, password, err := PromptForCredentials(username)
	if err != nil {
		return err
	}
	sess, err := app.Auth.Login(ctx, username, password)
	if err != nil {
		return err
	}
	defer app.Auth.Logout(context.Background(), sess.Token)

	DisplayWelcomeBanner(username)

	for {
		var text string
		err := survey.AskOne(&survey.Input{Message: ">"}, &text)
		if errors.Is(err, terminal.InterruptErr) {
			return nil
		}
		if err != nil {
			return err
		}
		text = strings.TrimSpace(text)
		switch strings.ToLower(text) {
		case "":
			continue
		case "exit", "quit":
			fmt.Println(mutedStyle.Render("Goodbye."))
			return nil
		}

		if _, err := app.Auth.Authenticate(ctx, sess.Token); err != nil {
			fmt.Println(errorStyle.Render("Your session expired. Run 'audney chat' to log in again."))
			return nil
		}

		resp, err := app.Chat.Respond(ctx, sess.AccountID, text)
		if err != nil {
			fmt.Println(errorStyle.Render(err.Error()))
			continue
		}
		fmt.Println(RenderReply(resp.Message, resp.HTML))

		if !resp.HTML {
			continue
		}
		candidates := ParseCandidates(resp.Message)
		if len(candidates) == 0 {
			continue
		}
		pick, ok, err := PromptForCandidate(candidates)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		result := app.Chat.StockPrice(ctx, sess.AccountID, pick.Symbol, pick.Name)
		if !result.Success {
			fmt.Println(errorStyle.Render(result.Error))
			continue
		}
		fmt.Println(RenderReply(fmt.Sprintf("%s is currently priced at %s.", pick.Name, result.Price), false))
	}
}
