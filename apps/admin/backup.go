package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/schooldesk/core/backup"
)

func (cli *commandLine) backup(dir string) error {
	snap, err := cli.sess.Backup.Export(context.Background())
	if err != nil {
		return err
	}
	if err = snap.WriteDir(dir); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "backed up %d admissions and %d history entries to %s\n", len(snap.Admissions), len(snap.History), dir)
	return nil
}

func (cli *commandLine) restore(dir string, force bool) error {
	snap, err := backup.ReadDir(dir)
	if err != nil {
		return err
	}
	return cli.restoreWith(func(ctx context.Context, confirmed bool) error {
		return cli.sess.Backup.Restore(ctx, snap, confirmed)
	}, force)
}

func (cli *commandLine) push() error {
	if err := cli.sess.Push(context.Background()); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "data pushed")
	return nil
}

func (cli *commandLine) pull(force bool) error {
	return cli.restoreWith(cli.sess.Pull, force)
}

// restoreWith runs do unconfirmed first, and asks before retrying when the data is not newer.
func (cli *commandLine) restoreWith(do func(ctx context.Context, confirmed bool) error, force bool) error {
	ctx := context.Background()
	err := do(ctx, force)
	if errors.Cause(err) != backup.ErrConfirmationRequired {
		if err == nil {
			fmt.Fprintln(cli.out, "data restored")
		}
		return err
	}

	question := "The data to restore is not newer than the current data. Overwrite anyway?"
	var cErr *backup.ConflictError
	if errors.As(err, &cErr) {
		question = fmt.Sprintf(
			"The data to restore (latest change %s) is not newer than the current data (latest change %s). Overwrite anyway?",
			formatTime(cErr.BackupLatest), formatTime(cErr.LiveLatest),
		)
	}
	ok, err := confirmFunc(question)
	if err != nil {
		return err
	}
	if !ok {
		return backup.ErrConfirmationRequired
	}
	if err = do(ctx, true); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "data restored")
	return nil
}

func (cli *commandLine) hashPassword(pwd []byte) error {
	hash, err := bcrypt.GenerateFromPassword(pwd, bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hashing password")
	}
	fmt.Fprintln(cli.out, string(hash))
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format(time.RFC3339)
}
