package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/metalagman/neuroplan/internal/task"
)

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}
	cmd.AddCommand(taskAddCmd())
	cmd.AddCommand(taskListCmd())
	cmd.AddCommand(taskTreeCmd())
	cmd.AddCommand(taskUpdateCmd())
	cmd.AddCommand(taskDoneCmd())
	cmd.AddCommand(taskDeleteCmd())
	cmd.AddCommand(taskSearchCmd())
	cmd.AddCommand(taskDueCmd())
	return cmd
}

func taskAddCmd() *cobra.Command {
	var (
		parentID    string
		file        string
		author      string
		description string
		priority    string
		due         string
		tags        []string
		noReminder  bool
	)
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args, " "))
			mgr, err := openManager()
			if err != nil {
				return err
			}
			draft := task.Draft{
				Title:       title,
				Description: description,
				Author:      author,
				Tags:        tags,
				ParentID:    parentID,
				OriginFile:  file,
			}
			if priority != "" {
				p, err := task.ParsePriority(priority)
				if err != nil {
					return err
				}
				draft.Priority = p
			}
			if due != "" {
				when, ok := task.ParseFlexibleDate(due, time.Now())
				if !ok {
					return fmt.Errorf("unrecognized date %q", due)
				}
				draft.DueDate = &when
			}
			if cfg.Reminders.LeadMinutes > 0 {
				draft.ReminderMinutes = cfg.Reminders.LeadMinutes
			}
			if noReminder {
				enabled := false
				draft.ReminderEnabled = &enabled
			}
			created, err := mgr.Add(draft)
			if err != nil {
				return err
			}
			log.Info().Msgf("task %s added", created.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&parentID, "parent", "", "parent task id")
	cmd.Flags().StringVar(&file, "file", "", "outline file the task belongs to")
	cmd.Flags().StringVar(&author, "author", "", "task author")
	cmd.Flags().StringVar(&description, "desc", "", "task description")
	cmd.Flags().StringVar(&priority, "priority", "", "priority (A|B|C|D)")
	cmd.Flags().StringVar(&due, "due", "", "due date (tomorrow, in 2h, 2024-03-05 ...)")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "tag label (repeatable)")
	cmd.Flags().BoolVar(&noReminder, "no-reminder", false, "disable reminders for this task")
	return cmd
}

func taskListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List top-level tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openManager()
			if err != nil {
				return err
			}
			roots := mgr.Roots()
			if len(roots) == 0 {
				log.Info().Msg("no tasks")
				return nil
			}
			for _, t := range roots {
				printTask(t, 0)
			}
			return nil
		},
	}
	return cmd
}

func taskTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the full task tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openManager()
			if err != nil {
				return err
			}
			var walk func(t task.Task, depth int)
			walk = func(t task.Task, depth int) {
				printTask(t, depth)
				for _, child := range mgr.Children(t.ID) {
					walk(child, depth+1)
				}
			}
			for _, root := range mgr.Roots() {
				walk(root, 0)
			}
			return nil
		},
	}
	return cmd
}

func taskUpdateCmd() *cobra.Command {
	var (
		title       string
		description string
		status      string
		priority    string
		due         string
		clearDue    bool
		parentID    string
		lead        int
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update task fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			mgr, err := openManager()
			if err != nil {
				return err
			}
			if _, ok := mgr.Get(id); !ok {
				return fmt.Errorf("task %s not found", id)
			}

			var patch task.Patch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("desc") {
				patch.Description = &description
			}
			if cmd.Flags().Changed("status") {
				s, err := task.ParseStatus(status)
				if err != nil {
					return err
				}
				patch.Status = &s
			}
			if cmd.Flags().Changed("priority") {
				p, err := task.ParsePriority(priority)
				if err != nil {
					return err
				}
				patch.Priority = &p
			}
			if clearDue {
				patch.ClearDueDate = true
			} else if cmd.Flags().Changed("due") {
				when, ok := task.ParseFlexibleDate(due, time.Now())
				if !ok {
					return fmt.Errorf("unrecognized date %q", due)
				}
				patch.DueDate = &when
			}
			if cmd.Flags().Changed("parent") {
				patch.ParentID = &parentID
			}
			if cmd.Flags().Changed("lead") {
				patch.ReminderMinutes = &lead
			}

			if err := mgr.Update(id, patch); err != nil {
				return err
			}
			log.Info().Msgf("task %s updated", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "desc", "", "new description")
	cmd.Flags().StringVar(&status, "status", "", "new status (TODO|DONE|WAITING)")
	cmd.Flags().StringVar(&priority, "priority", "", "new priority (A|B|C|D)")
	cmd.Flags().StringVar(&due, "due", "", "new due date")
	cmd.Flags().BoolVar(&clearDue, "clear-due", false, "remove the due date")
	cmd.Flags().StringVar(&parentID, "parent", "", "new parent id (empty moves to top level)")
	cmd.Flags().IntVar(&lead, "lead", 0, "reminder lead minutes")
	return cmd
}

func taskDoneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task as done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			mgr, err := openManager()
			if err != nil {
				return err
			}
			if _, ok := mgr.Get(id); !ok {
				return fmt.Errorf("task %s not found", id)
			}
			done := task.StatusDone
			if err := mgr.Update(id, task.Patch{Status: &done}); err != nil {
				return err
			}
			log.Info().Msgf("task %s done", id)
			return nil
		},
	}
	return cmd
}

func taskDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task and its subtree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			mgr, err := openManager()
			if err != nil {
				return err
			}
			before := mgr.Len()
			if err := mgr.Delete(id); err != nil {
				return err
			}
			log.Info().Msgf("removed %d task(s)", before-mgr.Len())
			return nil
		},
	}
	return cmd
}

func taskSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search tasks by title and description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openManager()
			if err != nil {
				return err
			}
			matches := mgr.Search(strings.Join(args, " "))
			if len(matches) == 0 {
				log.Info().Msg("no matches")
				return nil
			}
			for _, t := range matches {
				printTask(t, 0)
			}
			return nil
		},
	}
	return cmd
}

func taskDueCmd() *cobra.Command {
	var overdueOnly bool
	cmd := &cobra.Command{
		Use:   "due",
		Short: "List tasks with due dates, soonest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openManager()
			if err != nil {
				return err
			}
			tasks := mgr.WithDueDates()
			if overdueOnly {
				tasks = mgr.Overdue(time.Now())
			}
			if len(tasks) == 0 {
				log.Info().Msg("no due tasks")
				return nil
			}
			for _, t := range tasks {
				_, _ = io.WriteString(os.Stdout, fmt.Sprintf("%s\t%s\t%s\t%s\n",
					t.ID, t.DueDate.Format("2006-01-02 15:04"), t.Status, t.Title))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&overdueOnly, "overdue", false, "only tasks past their due date")
	return cmd
}

func printTask(t task.Task, depth int) {
	marker := strings.Repeat("  ", depth)
	due := "-"
	if t.DueDate != nil {
		due = t.DueDate.Format("2006-01-02 15:04")
	}
	line := fmt.Sprintf("%s%s\t[%s/%s]\t%s\t%s", marker, t.ID, t.Status, t.Priority, due, t.Title)
	if len(t.Tags) > 0 {
		line += " :" + strings.Join(t.Tags, ":") + ":"
	}
	_, _ = io.WriteString(os.Stdout, line+"\n")
}
