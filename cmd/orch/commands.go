package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"orchboard/internal/domain"
	"orchboard/internal/engine"
	"orchboard/internal/repo"
)

func newTable(header ...any) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row(header))
	return tw
}

func row(cells ...any) table.Row { return table.Row(cells) }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the dashboard overview",
		Long:  "Operator profile, projects by priority and recent tasks. Sections that cannot be read are listed as degraded.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				out := e.Status(ctx)
				if viper.GetBool("json") {
					return printJSON(out)
				}
				if out.UserProfile != nil {
					fmt.Printf("Situation: %s\n", out.UserProfile.CurrentSituation)
				}
				fmt.Println("Projects:")
				for _, p := range out.Projects {
					fmt.Printf("  [%d] %s (%s)\n", p.Priority, p.ID, p.Status)
				}
				fmt.Printf("Recent tasks: %d\n", len(out.RecentTasks))
				if len(out.Degraded) > 0 {
					fmt.Printf("Degraded: %s\n", strings.Join(out.Degraded, ", "))
				}
				return nil
			})
		},
	}
}

func runningCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "running",
		Short: "Show running runs and remaining capacity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				status, err := e.RunningStatus(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(status)
				}
				tw := newTable("Run", "Project", "Task", "Started", "Elapsed")
				for _, r := range status.Running {
					task := r.Instruction
					if r.Task != nil {
						task = r.Task.Title
					}
					tw.AppendRow(row(r.ID, r.ProjectID, task, r.StartedAt, r.DurationDisplay))
				}
				tw.Render()
				fmt.Printf("running %d/%d, pending %d, can start: %t\n",
					len(status.Running), status.MaxConcurrent, status.PendingCount, status.CanStart)
				return nil
			})
		},
	}
}

func analyticsCmd() *cobra.Command {
	var q engine.AnalyticsQuery
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Score trend, failure categories and tool usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				out, err := e.Analytics(ctx, q)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(out)
				}
				fmt.Printf("Window: %d days since %s\n", out.WindowDays, out.Since)
				trend := newTable("Date", "Average score")
				for _, p := range out.ScoreTrend {
					trend.AppendRow(row(p.Date, p.AverageScore))
				}
				trend.Render()
				failures := newTable("Failure category", "Count")
				for _, f := range out.FailureCategories {
					failures.AppendRow(row(f.Category, f.Count))
				}
				failures.Render()
				tools := newTable("Tool", "Total", "Success", "Failed", "Success %")
				for _, t := range out.ToolUsage {
					tools.AppendRow(row(t.Tool, t.Total, t.Success, t.Failed, t.SuccessRate))
				}
				tools.Render()
				if len(out.Degraded) > 0 {
					fmt.Printf("Degraded: %s\n", strings.Join(out.Degraded, ", "))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&q.Days, "days", 0, "window length in days (default analytics.default_days)")
	cmd.Flags().StringVar(&q.ProjectID, "project", "", "project filter")
	return cmd
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage projects"}
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectShowCmd())
	prj.AddCommand(projectUpdateCmd())
	return prj
}

func projectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects, highest priority first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListProjects(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Name", "Status", "Priority")
				for _, p := range items {
					tw.AppendRow(row(p.ID, p.Name, p.Status, p.Priority))
				}
				tw.Render()
				return nil
			})
		},
	}
}

func projectCreateCmd() *cobra.Command {
	var opts engine.ProjectCreateOptions
	var priority int
	var repoURL, deployURL string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("priority") {
				opts.Priority = &priority
			}
			opts.RepositoryURL = optionalString(repoURL)
			opts.DeployURL = optionalString(deployURL)
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.CreateProject(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "project id")
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.Purpose, "purpose", "", "purpose")
	cmd.Flags().StringVar(&opts.ForWhom, "for-whom", "", "intended audience")
	cmd.Flags().StringVar(&opts.Status, "status", "", "status (default active)")
	cmd.Flags().IntVar(&priority, "priority", 5, "priority, higher sorts first")
	cmd.Flags().StringVar(&repoURL, "repository-url", "", "repository url")
	cmd.Flags().StringVar(&deployURL, "deploy-url", "", "deploy url")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func projectShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project with its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				detail, err := e.ProjectDetail(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(detail)
			})
		},
	}
}

func projectUpdateCmd() *cobra.Command {
	var name, description, purpose, forWhom, status, repoURL, deployURL string
	var priority int
	cmd := &cobra.Command{
		Use:   "update <project-id>",
		Short: "Update project settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.ProjectUpdateOptions{ID: args[0], ActorID: viper.GetString("actor-id")}
			changed := func(flag string, v *string) *string {
				if cmd.Flags().Changed(flag) {
					return v
				}
				return nil
			}
			opts.Name = changed("name", &name)
			opts.Description = changed("description", &description)
			opts.Purpose = changed("purpose", &purpose)
			opts.ForWhom = changed("for-whom", &forWhom)
			opts.Status = changed("status", &status)
			opts.RepositoryURL = changed("repository-url", &repoURL)
			opts.DeployURL = changed("deploy-url", &deployURL)
			if cmd.Flags().Changed("priority") {
				opts.Priority = &priority
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.UpdateProject(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&purpose, "purpose", "", "purpose")
	cmd.Flags().StringVar(&forWhom, "for-whom", "", "intended audience")
	cmd.Flags().StringVar(&status, "status", "", "status")
	cmd.Flags().IntVar(&priority, "priority", 0, "priority")
	cmd.Flags().StringVar(&repoURL, "repository-url", "", "repository url (empty clears)")
	cmd.Flags().StringVar(&deployURL, "deploy-url", "", "deploy url (empty clears)")
	return cmd
}

func instructCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "instruct <instruction>",
		Short: "Queue an instruction as a pending task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.SubmitInstruction(ctx, engine.InstructionOptions{
					ProjectID:   projectID,
					Instruction: strings.Join(args, " "),
					ActorID:     viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func taskCmd() *cobra.Command {
	t := &cobra.Command{Use: "task", Short: "Inspect and delete tasks"}
	t.AddCommand(taskListCmd())
	t.AddCommand(taskDeleteCmd())
	return t
}

func taskListCmd() *cobra.Command {
	var f repo.TaskFilters
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.Statuses = splitList(status)
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tasks, err := e.ListTasks(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				printTasks(tasks)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.ProjectID, "project", "", "project id")
	cmd.Flags().StringVar(&status, "status", "", "comma-separated status filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 50, "maximum tasks")
	return cmd
}

func printTasks(tasks []domain.Task) {
	tw := newTable("ID", "Project", "Title", "Status", "Priority", "Created")
	for _, t := range tasks {
		tw.AppendRow(row(t.ID, t.ProjectID, t.Title, t.Status, t.Priority, t.CreatedAt))
	}
	tw.Render()
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteTask(ctx, id, viper.GetString("actor-id"))
			})
		},
	}
}

func suggestCmd() *cobra.Command {
	s := &cobra.Command{
		Use:   "suggest",
		Short: "Manage suggestions",
		Long:  "Suggestions are candidate work items. Promoting them creates pending tasks; promoted suggestions leave the list.",
	}
	s.AddCommand(suggestListCmd())
	s.AddCommand(suggestAddCmd())
	s.AddCommand(suggestPromoteCmd())
	s.AddCommand(suggestDeleteCmd())
	return s
}

func suggestListCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List suggestions not yet promoted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				list, err := e.ListSuggestions(ctx, projectID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(list)
				}
				tw := newTable("ID", "Project", "Title", "Source", "Priority")
				for _, s := range list {
					tw.AppendRow(row(s.ID, s.ProjectID, s.Title, s.Source, s.Priority))
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	return cmd
}

func suggestAddCmd() *cobra.Command {
	var opts engine.SuggestionCreateOptions
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a custom suggestion",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Title = strings.Join(args, " ")
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.CreateSuggestion(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ProjectID, "project", "", "project id")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func suggestPromoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promote <suggestion-id>...",
		Short: "Promote suggestions to pending tasks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, a := range args {
				id, err := parseID(a)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.PromoteSuggestions(ctx, ids, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				printTasks(res.Tasks)
				if res.MarkError != "" {
					fmt.Printf("warning: tasks created but suggestions not marked selected: %s\n", res.MarkError)
				}
				return nil
			})
		},
	}
}

func suggestDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <suggestion-id>",
		Short: "Delete a suggestion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteSuggestion(ctx, id, viper.GetString("actor-id"))
			})
		},
	}
}

func runCmd() *cobra.Command {
	r := &cobra.Command{
		Use:   "run",
		Short: "Record agent runs",
		Long:  "Runs are recorded by the scheduler. Starting a run above the concurrency ceiling is logged, not refused.",
	}
	r.AddCommand(runStartCmd())
	r.AddCommand(runFinishCmd())
	r.AddCommand(runEvalCmd())
	r.AddCommand(runToolCmd())
	return r
}

func runStartCmd() *cobra.Command {
	var opts engine.RunStartOptions
	var taskID int64
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Record that a run started",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("task") {
				opts.TaskID = &taskID
			}
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				run, err := e.StartRun(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(run)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ProjectID, "project", "", "project id")
	cmd.Flags().Int64Var(&taskID, "task", 0, "task id the run works on")
	cmd.Flags().StringVar(&opts.Instruction, "instruction", "", "instruction (default task title)")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func runFinishCmd() *cobra.Command {
	var opts engine.RunFinishOptions
	cmd := &cobra.Command{
		Use:   "finish <run-id>",
		Short: "Record that a run finished",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			opts.ID = id
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				run, err := e.FinishRun(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(run)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Status, "status", domain.RunCompleted, "completed or failed")
	cmd.Flags().StringVar(&opts.Progress, "progress", "", "final progress note")
	cmd.Flags().StringVar(&opts.Note, "note", "", "completion note for the task")
	return cmd
}

func runEvalCmd() *cobra.Command {
	var opts engine.EvaluationOptions
	cmd := &cobra.Command{
		Use:   "eval <run-id>",
		Short: "Record an evaluation of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			opts.RunID = id
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ev, err := e.RecordEvaluation(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(ev)
			})
		},
	}
	cmd.Flags().Float64Var(&opts.OverallScore, "score", 0, "overall score")
	cmd.Flags().StringVar(&opts.FailureCategory, "category", "", "failure category")
	cmd.Flags().StringVar(&opts.Summary, "summary", "", "summary")
	_ = cmd.MarkFlagRequired("score")
	return cmd
}

func runToolCmd() *cobra.Command {
	var opts engine.ToolCallOptions
	var failed bool
	cmd := &cobra.Command{
		Use:   "tool <run-id> <tool-name>",
		Short: "Record a tool call made by a run",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			opts.RunID = id
			opts.ToolName = args[1]
			opts.Success = !failed
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tc, err := e.RecordToolCall(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(tc)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Category, "category", "", "tool category")
	cmd.Flags().BoolVar(&failed, "failed", false, "the call failed")
	return cmd
}

func evaluationCmd() *cobra.Command {
	var f repo.EvaluationFilters
	cmd := &cobra.Command{
		Use:   "evaluations",
		Short: "List recent evaluations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				list, err := e.ListEvaluations(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(list)
				}
				tw := newTable("ID", "Run", "Project", "Score", "Failure", "Evaluated")
				for _, ev := range list {
					tw.AppendRow(row(ev.ID, ev.RunID, ev.ProjectID, ev.OverallScore, deref(ev.FailureCategory), ev.EvaluatedAt))
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.ProjectID, "project", "", "project filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 50, "maximum evaluations")
	return cmd
}

func improvementCmd() *cobra.Command {
	imp := &cobra.Command{Use: "improvement", Short: "Self-improvement history"}
	imp.AddCommand(improvementListCmd())
	imp.AddCommand(improvementRecordCmd())
	return imp
}

func improvementListCmd() *cobra.Command {
	var f repo.ImprovementFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List applied improvements, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				list, err := e.ListImprovements(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(list)
				}
				tw := newTable("ID", "Project", "Trigger", "Summary", "Applied")
				for _, i := range list {
					tw.AppendRow(row(i.ID, deref(i.ProjectID), i.TriggerType, i.ChangesSummary, i.AppliedAt))
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.ProjectID, "project", "", "project filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 50, "maximum improvements")
	return cmd
}

func improvementRecordCmd() *cobra.Command {
	var opts engine.ImprovementOptions
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record an applied improvement",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				imp, err := e.RecordImprovement(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(imp)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ProjectID, "project", "", "project id")
	cmd.Flags().StringVar(&opts.TriggerType, "trigger", "", "trigger type")
	cmd.Flags().StringVar(&opts.TriggerDetails, "details", "", "trigger details")
	cmd.Flags().StringVar(&opts.TargetFiles, "files", "", "target files")
	cmd.Flags().StringVar(&opts.ChangesSummary, "summary", "", "changes summary")
	_ = cmd.MarkFlagRequired("trigger")
	_ = cmd.MarkFlagRequired("summary")
	return cmd
}

func profileCmd() *cobra.Command {
	p := &cobra.Command{Use: "profile", Short: "Operator profile"}
	p.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the operator profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				prof, err := e.UserProfile(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(prof)
			})
		},
	})
	p.AddCommand(profileSetCmd())
	return p
}

func profileSetCmd() *cobra.Command {
	var opts engine.ProfileOptions
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Replace the operator profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				prof, err := e.SaveUserProfile(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(prof)
			})
		},
	}
	cmd.Flags().StringVar(&opts.CurrentSituation, "situation", "", "current situation")
	cmd.Flags().StringArrayVar(&opts.CurrentChallenges, "challenge", nil, "current challenge (repeatable)")
	cmd.Flags().StringArrayVar(&opts.CurrentGoals, "goal", nil, "current goal (repeatable)")
	_ = cmd.MarkFlagRequired("situation")
	return cmd
}

func apiKeyCmd() *cobra.Command {
	k := &cobra.Command{
		Use:   "apikey",
		Short: "Manage stored API keys",
		Long:  "Stored keys are accepted alongside the dashboard key. Only a hash is kept; the key is shown once at creation.",
	}
	var name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Issue a new API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				key, err := e.CreateAPIKey(ctx, name)
				if err != nil {
					return err
				}
				return printJSONOrTable(key)
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "label recorded as the acting identity")
	k.AddCommand(create)
	k.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				keys, err := e.ListAPIKeys(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(keys)
				}
				tw := newTable("ID", "Name", "Created")
				for _, key := range keys {
					tw.AppendRow(row(key.ID, key.Name, key.CreatedAt))
				}
				tw.Render()
				return nil
			})
		},
	})
	k.AddCommand(&cobra.Command{
		Use:   "delete <key-id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteAPIKey(ctx, args[0])
			})
		},
	})
	return k
}
