package phoneme

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	shellwords "github.com/mattn/go-shellwords"
)

// execPhonemizer shells out to an espeak-ng style command. The command is
// invoked per call with the language substituted for {lang} and text on
// stdin; stdout is the phoneme string.
type execPhonemizer struct {
	cmd                 []string
	preservePunctuation bool
	withStress          bool
	mu                  sync.Mutex
}

// NewExecPhonemizer parses the command line once up front. A typical command:
//
//	espeak-ng -q --ipa=3 -v {lang} --stdin
func NewExecPhonemizer(command string, preservePunctuation, withStress bool) (Phonemizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse phonemizer command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("phonemizer command empty")
	}
	return &execPhonemizer{
		cmd:                 args,
		preservePunctuation: preservePunctuation,
		withStress:          withStress,
	}, nil
}

func (e *execPhonemizer) Phonemize(ctx context.Context, text, lang string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	args := make([]string, 0, len(e.cmd)-1)
	for _, a := range e.cmd[1:] {
		args = append(args, strings.ReplaceAll(a, "{lang}", lang))
	}

	cmd := exec.CommandContext(ctx, e.cmd[0], args...)
	cmd.Stdin = strings.NewReader(text)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", wrapPhonemize(fmt.Errorf("%v: %s", err, msg))
		}
		return "", wrapPhonemize(err)
	}

	ps := strings.TrimSpace(stdout.String())
	ps = strings.ReplaceAll(ps, "\n", " ")
	if !e.withStress {
		ps = strings.ReplaceAll(ps, "ˈ", "")
		ps = strings.ReplaceAll(ps, "ˌ", "")
	}
	if !e.preservePunctuation {
		var b strings.Builder
		for _, r := range ps {
			if !strings.ContainsRune(";:,.!?¡¿—…\"«»“”", r) {
				b.WriteRune(r)
			}
		}
		ps = b.String()
	}
	return postProcess(ps, lang), nil
}
