// Package wizard holds the terminal niceties of the ecowatch CLI: endpoint
// listing on start and yes/no confirmation prompts.
package wizard

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"golang.org/x/term"
)

// PrintEndpoints prints LAN IPs + localhost for the API, the dashboard
// socket and the relay socket. Called by serve on every start.
func PrintEndpoints(w io.Writer, port string) {
	hosts := append(lanIPs(), "localhost")

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  API       → http://%s:%s/api/v1/stats\n", hosts[0], port)
	fmt.Fprintf(w, "  Dashboard → ws://%s:%s/ws\n", hosts[0], port)
	fmt.Fprintf(w, "  Relay     → ws://%s:%s/ws/observe\n", hosts[0], port)
	for _, h := range hosts[1:] {
		fmt.Fprintf(w, "              http://%s:%s\n", h, port)
	}
	fmt.Fprintln(w)
}

func lanIPs() []string {
	var ips []string
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, _ := iface.Addrs()
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip4 := ip.To4(); ip4 != nil && !ip4.IsLoopback() {
				ips = append(ips, ip4.String())
			}
		}
	}
	return ips
}

// Confirm asks a yes/no question on out and reads the answer from in.
// Anything but "y" or "yes" is a no, including EOF.
func Confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "  %s [y/N]: ", question)
	line, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func supportsColor() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Color wraps text in an ANSI sequence when stdout is a terminal.
func Color(ansi, text string) string {
	if !supportsColor() {
		return text
	}
	return ansi + text + "\033[0m"
}

// Common colors.
const (
	Green = "\033[32m"
	Red   = "\033[31m"
)
