package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pingcap/errors"

	"github.com/wesleyorama2/volley/internal/config"
)

const maxPromptAttempts = 3

// prompter asks for values on a line-oriented terminal.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

func (p *prompter) ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", errors.Annotate(err, "read answer")
	}
	return strings.TrimSpace(line), nil
}

func (p *prompter) askInt(question string, min int) (int, error) {
	for i := 0; i < maxPromptAttempts; i++ {
		answer, err := p.ask(question)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= min {
			return n, nil
		}
		fmt.Fprintf(p.out, "Please enter a whole number of at least %d.\n", min)
	}
	return 0, errors.Errorf("no valid answer after %d attempts", maxPromptAttempts)
}

func (p *prompter) askDuration(question string) (time.Duration, error) {
	for i := 0; i < maxPromptAttempts; i++ {
		answer, err := p.ask(question)
		if err != nil {
			return 0, err
		}
		d, err := config.ParseDuration(answer)
		if err == nil && answer != "" && d >= 0 {
			return d, nil
		}
		fmt.Fprintln(p.out, "Please enter milliseconds (e.g. 500) or a duration (e.g. 2s).")
	}
	return 0, errors.Errorf("no valid answer after %d attempts", maxPromptAttempts)
}

// fillInteractive asks for the run values that neither the config file nor
// a flag provided.
func fillInteractive(p *prompter, cfg *config.Config, delaySet, workersSet, textSet bool) error {
	if !delaySet {
		d, err := p.askDuration("Delay before delete (ms): ")
		if err != nil {
			return err
		}
		cfg.Run.Delay = config.Duration(d)
	}
	if !workersSet {
		n, err := p.askInt("Number of workers: ", 1)
		if err != nil {
			return err
		}
		cfg.Run.Workers = n
	}
	if !textSet {
		text, err := p.ask("Description text: ")
		if err != nil {
			return err
		}
		cfg.Run.Description = text
	}
	return nil
}

// waitForEnter calls stop once a full line is read. It returns without
// calling stop when the input ends.
func waitForEnter(r *bufio.Reader, stop func()) {
	if _, err := r.ReadString('\n'); err == nil {
		stop()
	}
}
