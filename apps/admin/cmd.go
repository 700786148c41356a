package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/schooldesk/core/session"
	"github.com/trezcool/schooldesk/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	confirmFunc      = promptConfirm     // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	store *database.Store
	sess  *session.Session
	out   io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]           - run a goose migration command (postgres engine only)")
	fmt.Fprintln(cli.out, "  backup -dir DIR                  - write the backup file set into DIR")
	fmt.Fprintln(cli.out, "  restore -dir DIR [-force]        - replace all data with the backup file set in DIR")
	fmt.Fprintln(cli.out, "  push                             - upload the data to the remote backend")
	fmt.Fprintln(cli.out, "  pull [-force]                    - replace all data with the remote copy")
	fmt.Fprintln(cli.out, "  history [-student STUDENT_ID]    - print the audit trail, newest first")
	fmt.Fprintln(cli.out, "  hashpassword                     - print the bcrypt hash of the admin password")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	backupCmd := flag.NewFlagSet("backup", flag.ContinueOnError)
	backupDir := backupCmd.String("dir", "", "The directory to write the backup files into.")

	restoreCmd := flag.NewFlagSet("restore", flag.ContinueOnError)
	restoreDir := restoreCmd.String("dir", "", "The directory holding the backup files.")
	restoreForce := restoreCmd.Bool("force", false, "Do not ask for confirmation when the backup is not newer than the current data.")

	pullCmd := flag.NewFlagSet("pull", flag.ContinueOnError)
	pullForce := pullCmd.Bool("force", false, "Do not ask for confirmation when the remote copy is not newer than the current data.")

	historyCmd := flag.NewFlagSet("history", flag.ContinueOnError)
	historyStudent := historyCmd.String("student", "", "Only print the entries of this student.")

	for _, fs := range []*flag.FlagSet{backupCmd, restoreCmd, pullCmd, historyCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "backup":
		if err := backupCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *backupDir == "" {
			backupCmd.Usage()
			return errHelp
		}
		return cli.backup(*backupDir)
	case "restore":
		if err := restoreCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *restoreDir == "" {
			restoreCmd.Usage()
			return errHelp
		}
		return cli.restore(*restoreDir, *restoreForce)
	case "push":
		return cli.push()
	case "pull":
		if err := pullCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.pull(*pullForce)
	case "history":
		if err := historyCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.history(*historyStudent)
	case "hashpassword":
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			cli.printUsage()
			return errHelp
		}
		return cli.hashPassword(pwd)
	default:
		cli.printUsage()
		return errHelp
	}
}

// promptConfirm asks a yes/no question on stdin; anything but y/yes is a no.
func promptConfirm(question string) (bool, error) {
	fmt.Printf("%s [y/N]: ", question)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
