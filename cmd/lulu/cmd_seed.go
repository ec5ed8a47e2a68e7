package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lulu/internal/config"
	"github.com/felixgeelhaar/lulu/internal/domain"
	"github.com/felixgeelhaar/lulu/internal/storage"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Load topics and subtopics from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := config.LoadSeed(args[0])
			if err != nil {
				return err
			}

			_, store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			topics, subtopics, err := seedContent(cmd.Context(), store, seed)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d topics and %d subtopics\n", topics, subtopics)
			return nil
		},
	}
}

// seedContent upserts every topic and subtopic of seed. Entries with an id
// are updated in place; entries without one are inserted.
func seedContent(ctx context.Context, store storage.Store, seed *config.Seed) (topics, subtopics int, err error) {
	for _, t := range seed.Topics {
		topic := &domain.Topic{ID: t.ID, Name: t.Name}
		if err := store.SaveTopic(ctx, topic); err != nil {
			return topics, subtopics, fmt.Errorf("save topic %q: %w", t.Name, err)
		}
		topics++

		for _, s := range t.Subtopics {
			sub := &domain.Subtopic{
				ID:          s.ID,
				TopicID:     topic.ID,
				Name:        s.Name,
				Description: s.Description,
				Detail:      s.Detail,
			}
			if err := store.SaveSubtopic(ctx, sub); err != nil {
				return topics, subtopics, fmt.Errorf("save subtopic %q: %w", s.Name, err)
			}
			subtopics++
		}
	}
	return topics, subtopics, nil
}
