package auth

import (
	"fmt"
	"io"

	"github.com/pkg/browser"
	log "github.com/sirupsen/logrus"
)

// TerminalNotifier writes the verification instructions to a terminal and tries to
// open the verification URL in the default browser.
// All prompts go to out (stderr in the CLI) so stdout remains clean for piping.
type TerminalNotifier struct {
	out     io.Writer
	openURL func(string) error
}

// NewTerminalNotifier creates a TerminalNotifier that opens URLs with the system browser.
func NewTerminalNotifier(out io.Writer) *TerminalNotifier {
	return NewTerminalNotifierWithOpener(out, browser.OpenURL)
}

// NewTerminalNotifierWithOpener creates a TerminalNotifier with a custom URL opener.
func NewTerminalNotifierWithOpener(out io.Writer, openURL func(string) error) *TerminalNotifier {
	return &TerminalNotifier{out: out, openURL: openURL}
}

// ShowVerificationInstructions prints the URL and code. A browser that fails to open is
// only logged: the operator can still navigate to the printed URL.
func (n *TerminalNotifier) ShowVerificationInstructions(uri string, code string) {
	fmt.Fprintf(n.out, "Visit:      %s\n", uri)
	fmt.Fprintf(n.out, "Enter code: %s\n", code)
	if n.openURL != nil {
		if err := n.openURL(uri); err != nil {
			log.Warnf("could not open browser automatically: %v", err)
		}
	}
	fmt.Fprintf(n.out, "Waiting for authorization...\n")
}
