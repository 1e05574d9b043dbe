package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/WessleyAI/holocron/engine/bootstrap"
	"github.com/WessleyAI/holocron/engine/domain"
)

func (c *cli) storyCmd() *cobra.Command {
	var characters, planets, ships []string
	cmd := &cobra.Command{
		Use:   "story",
		Short: "Generate one story in-process and print it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := domain.ValidateStoryRequest(domain.StoryRequest{
				Characters: characters,
				Planets:    planets,
				Ships:      ships,
			})
			if err != nil {
				var ve *domain.ValidationError
				if errors.As(err, &ve) {
					return errors.New(ve.Message())
				}
				return err
			}
			app, err := bootstrap.NewApp(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer app.Close()
			story, err := app.Story.Generate(cmd.Context(), req)
			if err != nil {
				return err
			}
			c.printf("%s\n", story.Narrative)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&characters, "personagens", nil, "characters")
	f.StringSliceVar(&planets, "planetas", nil, "planets")
	f.StringSliceVar(&ships, "naves", nil, "ships")
	return cmd
}
