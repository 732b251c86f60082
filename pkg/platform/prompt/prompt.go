package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

const (
	userPrompt = "ca> $ "
)

func PrintBanner(w io.Writer, version string) {
	color.New(color.FgGreen).Fprintf(w, "Certificate Authority v%s\n\n", version)
}

// PasswordPrompt reads a password from the terminal without echo. When
// stdin is not a terminal, a single line is read instead so passwords can
// be piped in.
func PasswordPrompt(message string) ([]byte, error) {
	fmt.Printf("%s: \n", message)
	fmt.Print(userPrompt)
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return readLine(os.Stdin)
	}
	password, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return nil, err
	}
	return password, nil
}

func Pin() ([]byte, error) {
	return PasswordPrompt("Token PIN")
}

func KeyPassword() ([]byte, error) {
	return PasswordPrompt("Key Password")
}

func ExportPassword() ([]byte, error) {
	return PasswordPrompt("Export Password")
}

func readLine(r io.Reader) ([]byte, error) {
	response, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, err
	}
	return []byte(strings.TrimRight(response, "\r\n")), nil
}
