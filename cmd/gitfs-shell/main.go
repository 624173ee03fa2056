// Command gitfs-shell is a thin, interactive REPL over a gitfs.Session.
// It carries no domain logic of its own; it exists to exercise the
// library by hand.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wiretree/gitfs"
	"github.com/wiretree/gitfs/core"
)

const (
	PromptColor  = "\033[36m"
	ErrorColor   = "\033[31m"
	SuccessColor = "\033[32m"
	ResetColor   = "\033[0m"
	BoldColor    = "\033[1m"
)

var Version = "dev"

type shell struct {
	session *gitfs.Session
}

func main() {
	baseDir := flag.String("baseDir", "", "base directory for the repository (empty for in-memory)")
	branch := flag.String("branch", "master", "branch to operate on")
	userName := flag.String("name", "gitfs", "user name for commits")
	userEmail := flag.String("email", "shell@gitfs.local", "user email for commits")
	flag.Parse()

	printBanner()

	opts := []gitfs.Option{
		gitfs.WithBranch(*branch),
		gitfs.WithIdentity(core.Identity{Name: *userName, Email: *userEmail}),
	}

	var session *gitfs.Session
	var err error
	if *baseDir == "" {
		fmt.Printf("%sUsing in-memory repository%s\n", SuccessColor, ResetColor)
		session, err = gitfs.OpenMemory(opts...)
	} else {
		fmt.Printf("%sUsing repository at: %s%s\n", SuccessColor, *baseDir, ResetColor)
		session, err = gitfs.Open(*baseDir, opts...)
	}
	if err != nil {
		fmt.Printf("%sError: %v%s\n", ErrorColor, err, ResetColor)
		os.Exit(1)
	}

	sh := &shell{session: session}
	sh.run()
}

func printBanner() {
	fmt.Println()
	fmt.Printf("%s%s╔═══════════════════════════════════╗%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Printf("%s%s║  gitfs-shell v%-6s               ║%s\n", BoldColor, PromptColor, Version, ResetColor)
	fmt.Printf("%s%s╚═══════════════════════════════════╝%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Println()
	fmt.Println("Type .help for commands, .quit to exit")
	fmt.Println()
}

func (sh *shell) run() {
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Printf("%sgitfs>%s ", PromptColor, ResetColor)

		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Printf("\n%sGoodbye!%s\n", SuccessColor, ResetColor)
			return
		}

		line = strings.TrimRight(line, "\r\n")
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		sh.dispatch(fields[0], fields[1:])
	}
}

func (sh *shell) dispatch(cmd string, args []string) {
	switch cmd {
	case ".quit", ".exit", ".q":
		fmt.Printf("%sGoodbye!%s\n", SuccessColor, ResetColor)
		os.Exit(0)

	case ".help", ".h":
		printHelp()

	case "ls":
		sh.ls(firstOr(args, "."))

	case "mkdir":
		sh.run1(args, func(p string) error { return sh.session.Mkdir(p) })

	case "rm":
		sh.run1(args, func(p string) error { return sh.session.Remove(p) })

	case "rmdir":
		sh.run1(args, func(p string) error { return sh.session.RemoveDir(p) })

	case "cat":
		sh.cat(firstOr(args, ""))

	case "write":
		sh.write(args)

	case "commit":
		sh.commit(strings.Join(args, " "))

	case "abort":
		sh.session.Abort()
		fmt.Printf("%sTransaction aborted%s\n", SuccessColor, ResetColor)

	default:
		fmt.Printf("%sUnknown command: %s (type .help for commands)%s\n", ErrorColor, cmd, ResetColor)
	}
}

func (sh *shell) ls(path string) {
	names, err := sh.session.Listdir(path)
	if err != nil {
		fmt.Printf("%sError: %v%s\n", ErrorColor, err, ResetColor)
		return
	}
	for _, n := range names {
		fmt.Println(n)
	}
}

func (sh *shell) cat(path string) {
	f, err := sh.session.Open(path, "r")
	if err != nil {
		fmt.Printf("%sError: %v%s\n", ErrorColor, err, ResetColor)
		return
	}
	defer f.Close()
	io.Copy(os.Stdout, f)
}

func (sh *shell) write(args []string) {
	if len(args) < 1 {
		fmt.Printf("%sUsage: write <path> <text...>%s\n", ErrorColor, ResetColor)
		return
	}
	f, err := sh.session.Open(args[0], "w")
	if err != nil {
		fmt.Printf("%sError: %v%s\n", ErrorColor, err, ResetColor)
		return
	}
	fmt.Fprintln(f, strings.Join(args[1:], " "))
	if err := f.Close(); err != nil {
		fmt.Printf("%sError: %v%s\n", ErrorColor, err, ResetColor)
	}
}

func (sh *shell) commit(note string) {
	tx, err := sh.session.Commit(note)
	if err != nil {
		fmt.Printf("%sError: %v%s\n", ErrorColor, err, ResetColor)
		return
	}
	if tx.IsEmpty() {
		fmt.Printf("%sNothing to commit%s\n", SuccessColor, ResetColor)
		return
	}
	fmt.Printf("%sCommitted %s%s\n", SuccessColor, tx.ID, ResetColor)
}

func (sh *shell) run1(args []string, f func(string) error) {
	if len(args) < 1 {
		fmt.Printf("%sUsage: <cmd> <path>%s\n", ErrorColor, ResetColor)
		return
	}
	if err := f(args[0]); err != nil {
		fmt.Printf("%sError: %v%s\n", ErrorColor, err, ResetColor)
	}
}

func firstOr(args []string, def string) string {
	if len(args) > 0 {
		return args[0]
	}
	return def
}

func printHelp() {
	fmt.Println()
	fmt.Printf("%s%sCommands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Println("  ls [path]             list a directory")
	fmt.Println("  mkdir <path>          create a directory")
	fmt.Println("  rm <path>             remove a file")
	fmt.Println("  rmdir <path>          remove a directory")
	fmt.Println("  cat <path>            print a file's contents")
	fmt.Println("  write <path> <text>   write text to a file")
	fmt.Println("  commit [note]         commit the current transaction")
	fmt.Println("  abort                 discard the current transaction")
	fmt.Println("  .help, .quit          this help / exit")
	fmt.Println()
}
