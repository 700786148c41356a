package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/trezcool/schooldesk/core/history"
)

func (cli *commandLine) history(studentID string) error {
	ctx := context.Background()

	var entries []history.Entry
	var err error
	if studentID != "" {
		entries, err = cli.sess.History.ListByStudent(ctx, studentID)
	} else {
		entries, err = cli.sess.History.ListAll(ctx)
	}
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cli.out, "no history")
		return nil
	}

	for _, e := range entries {
		changes, err := history.ChangedFields(e.Before, e.After)
		if err != nil {
			return err
		}
		fields := make([]string, 0, len(changes))
		for _, c := range changes {
			fields = append(fields, c.Field)
		}
		fmt.Fprintf(cli.out, "#%d %s %s %s [%s]\n", e.ID, e.Timestamp.Format(time.RFC3339), e.Action, e.StudentID, strings.Join(fields, ", "))

		diff, err := history.Diff(e)
		if err != nil {
			return err
		}
		if diff != "" {
			fmt.Fprintln(cli.out, diff)
		}
	}
	return nil
}
