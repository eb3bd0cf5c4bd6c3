package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/saulfrancisco-ruizacevedo/go-neotraverse"
	"github.com/saulfrancisco-ruizacevedo/go-neotraverse/examples/models"
	"github.com/saulfrancisco-ruizacevedo/go-neotraverse/examples/sample"
)

var (
	olderThanAge int
	namePrefix   string
	findName     string
)

var createGraphCmd = &cobra.Command{
	Use:   "create-graph",
	Short: "Create the sample people, software and their edges",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, _ []string, s *session) error {
		if err := sample.CreateGraph(cmd.Context(), s.client); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Sample graph created.")
		return nil
	}),
}

var createKnowsCmd = &cobra.Command{
	Use:   "create-knows",
	Short: "Create Bob, Jeff and the edge between them in one traversal",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, _ []string, s *session) error {
		edge, err := sample.CreateKnowsRelationInOneQuery(cmd.Context(), s.client)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created knows edge %s.\n", edge.ID)
		return nil
	}),
}

var whoKnowsCmd = &cobra.Command{
	Use:   "who-knows [NAME]",
	Short: "List the people someone knows (default Marko)",
	Args:  cobra.MaximumNArgs(1),
	RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
		name := "Marko"
		if len(args) == 1 {
			name = args[0]
		}
		known, err := neotraverse.ToSlice[string](cmd.Context(), s.client, sample.KnownBy(name))
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), known, func(w io.Writer) {
			fmt.Fprintf(w, "Who does %s know?\n", name)
			for _, person := range known {
				fmt.Fprintf(w, " %s knows %s.\n", name, person)
			}
		})
	}),
}

var olderThanCmd = &cobra.Command{
	Use:   "older-than",
	Short: "List the people older than --age",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, _ []string, s *session) error {
		people, err := collectPeople(cmd.Context(), s, sample.OlderThan(olderThanAge))
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), people, func(w io.Writer) {
			fmt.Fprintf(w, "Who is older than %d?\n", olderThanAge)
			for _, p := range people {
				fmt.Fprintf(w, " %s is older than %d.\n", p.Name, olderThanAge)
			}
		})
	}),
}

var nameStartsWithCmd = &cobra.Command{
	Use:   "name-starts-with",
	Short: "List the people whose name starts with --prefix",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, _ []string, s *session) error {
		people, err := collectPeople(cmd.Context(), s, sample.NameStartsWith(namePrefix))
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), people, func(w io.Writer) {
			fmt.Fprintf(w, "Whose name starts with '%s'?\n", namePrefix)
			for _, p := range people {
				fmt.Fprintf(w, " %s's name starts with a '%s'.\n", p.Name, namePrefix)
			}
		})
	}),
}

var whoKnowsWhoCmd = &cobra.Command{
	Use:   "who-knows-who",
	Short: "List every pair of people where one knows the other",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, _ []string, s *session) error {
		if jsonOutput {
			graph, err := s.client.Graph(cmd.Context(), sample.WhoKnowsWho())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), graph)
		}
		friendships, err := sample.Friendships(cmd.Context(), s.client)
		if err != nil {
			return err
		}
		printFriendships(cmd.OutOrStdout(), friendships)
		return nil
	}),
}

var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Delete every vertex and edge",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, _ []string, s *session) error {
		if err := s.client.Exec(cmd.Context(), sample.DropAll()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Graph dropped.")
		return nil
	}),
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Idempotently upsert the sample people by name",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, _ []string, s *session) error {
		repo, err := neotraverse.NewRepository[models.Person](s.client)
		if err != nil {
			return err
		}
		for _, p := range []models.Person{
			{Name: "Marko", Age: 29},
			{Name: "Vadas", Age: 27},
			{Name: "Josh", Age: 32},
			{Name: "Peter", Age: 29},
		} {
			saved, err := repo.Merge(cmd.Context(), &p, "Name")
			if err != nil {
				return fmt.Errorf("could not seed %s: %w", p.Name, err)
			}
			s.logger.Info("seeded person", "name", saved.Name, "id", saved.ID)
		}
		return nil
	}),
}

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Find people by --name",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, _ []string, s *session) error {
		repo, err := neotraverse.NewRepository[models.Person](s.client)
		if err != nil {
			return err
		}
		people, err := repo.FindBy(cmd.Context(), "Name", findName)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), people, func(w io.Writer) {
			for _, p := range people {
				fmt.Fprintf(w, " %s (%d) %s\n", p.Name, p.Age, p.ID)
			}
		})
	}),
}

// report is the output of the report command.
type report struct {
	MarkoKnows  []string            `json:"marko_knows"`
	OlderThan30 []models.Person     `json:"older_than_30"`
	StartsWithB []models.Person     `json:"starts_with_b"`
	Friendships []sample.Friendship `json:"friendships"`
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run all read traversals concurrently",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, _ []string, s *session) error {
		var r report
		eg, ctx := errgroup.WithContext(cmd.Context())
		eg.Go(func() (err error) {
			r.MarkoKnows, err = neotraverse.ToSlice[string](ctx, s.client, sample.KnownBy("Marko"))
			return err
		})
		eg.Go(func() (err error) {
			r.OlderThan30, err = collectPeople(ctx, s, sample.OlderThan(30))
			return err
		})
		eg.Go(func() (err error) {
			r.StartsWithB, err = collectPeople(ctx, s, sample.NameStartsWith("B"))
			return err
		})
		eg.Go(func() (err error) {
			r.Friendships, err = sample.Friendships(ctx, s.client)
			return err
		})
		if err := eg.Wait(); err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), r, func(w io.Writer) {
			fmt.Fprintf(w, "Marko knows: %v\n", r.MarkoKnows)
			for _, p := range r.OlderThan30 {
				fmt.Fprintf(w, " %s is older than 30.\n", p.Name)
			}
			for _, p := range r.StartsWithB {
				fmt.Fprintf(w, " %s's name starts with a 'B'.\n", p.Name)
			}
			printFriendships(w, r.Friendships)
		})
	}),
}

func init() {
	olderThanCmd.Flags().IntVar(&olderThanAge, "age", 30, "Minimum age, exclusive")
	nameStartsWithCmd.Flags().StringVar(&namePrefix, "prefix", "B", "Name prefix")
	findCmd.Flags().StringVar(&findName, "name", "Marko", "Name to look up")

	rootCmd.AddCommand(createGraphCmd)
	rootCmd.AddCommand(createKnowsCmd)
	rootCmd.AddCommand(whoKnowsCmd)
	rootCmd.AddCommand(olderThanCmd)
	rootCmd.AddCommand(nameStartsWithCmd)
	rootCmd.AddCommand(whoKnowsWhoCmd)
	rootCmd.AddCommand(dropCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(reportCmd)
}

// collectPeople keeps the people that hydrate and logs the ones that do not.
func collectPeople(ctx context.Context, s *session, t neotraverse.Traversal) ([]models.Person, error) {
	res, err := neotraverse.Execute[models.Person](ctx, s.client, t)
	if err != nil {
		return nil, err
	}
	defer res.Close(ctx)

	var people []models.Person
	for p, err := range res.All(ctx) {
		if err != nil {
			var hydrationErr *neotraverse.HydrationError
			if errors.As(err, &hydrationErr) {
				s.logger.Warn("skipping result", "error", err)
				continue
			}
			return nil, err
		}
		people = append(people, p)
	}
	return people, nil
}

func printFriendships(w io.Writer, friendships []sample.Friendship) {
	fmt.Fprintln(w, "Who knows who?")
	for _, f := range friendships {
		fmt.Fprintf(w, " %s knows %s.\n", f.Person.Name, f.Friend.Name)
	}
}

func render(w io.Writer, v any, text func(io.Writer)) error {
	if jsonOutput {
		return writeJSON(w, v)
	}
	text(w)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
