package cmd

import (
	"prema-client/internal/format"
	"prema-client/internal/location"
	"prema-client/internal/models"
	"prema-client/internal/photos"

	"github.com/spf13/cobra"
)

func newProfileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "profile", Short: "Profile operations"}
	cmd.AddCommand(newProfileUpdateCmd(a), newProfileLocateCmd(a), newPhotoCmd(a))
	return cmd
}

func newProfileUpdateCmd(a *app) *cobra.Command {
	var (
		name, bio, gender, seeking string
		age                        int
		lat, lon                   float64
	)
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change profile fields; only the flags given are sent",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireLogin(ctx); err != nil {
				return err
			}

			var update models.ProfileUpdate
			flags := cmd.Flags()
			if flags.Changed("name") {
				update.Name = &name
			}
			if flags.Changed("bio") {
				update.Bio = &bio
			}
			if flags.Changed("age") {
				update.Age = &age
			}
			if flags.Changed("gender") {
				update.Gender = &gender
			}
			if flags.Changed("seeking") {
				update.SeekingGender = &seeking
			}
			if flags.Changed("lat") && flags.Changed("lon") {
				update.LocationLatitude = &lat
				update.LocationLongitude = &lon
			}

			if err := a.session.UpdateUser(ctx, update); err != nil {
				return err
			}
			a.printf("Profile updated\n")
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&bio, "bio", "", "Bio")
	cmd.Flags().IntVar(&age, "age", 0, "Age")
	cmd.Flags().StringVar(&gender, "gender", "", "Gender")
	cmd.Flags().StringVar(&seeking, "seeking", "", "Gender to be shown")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Longitude")
	return cmd
}

func newProfileLocateCmd(a *app) *cobra.Command {
	var lat, lon float64
	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Report the device position, at most once per update interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireLogin(ctx); err != nil {
				return err
			}
			provider := location.Fixed{Latitude: lat, Longitude: lon}
			updater := location.NewUpdater(a.session, provider, a.store, a.cfg.Location.UpdateInterval)
			if updater.Update(ctx) {
				a.printf("Location updated\n")
			} else {
				a.printf("Location not updated\n")
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude (required)")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Longitude (required)")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
	return cmd
}

func newPhotoCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "photo", Short: "Manage profile photos"}

	add := &cobra.Command{
		Use:   "add PATH",
		Short: "Upload a photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireLogin(ctx); err != nil {
				return err
			}
			photo, f, err := photos.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			list, err := a.session.UploadPhoto(ctx, photo)
			if err != nil {
				return err
			}
			a.printPhotos(list)
			return nil
		},
	}

	rm := &cobra.Command{
		Use:   "rm URL",
		Short: "Delete a photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireLogin(ctx); err != nil {
				return err
			}
			list, err := a.session.DeletePhoto(ctx, args[0])
			if err != nil {
				return err
			}
			a.printPhotos(list)
			return nil
		},
	}

	cmd.AddCommand(add, rm)
	return cmd
}

func (a *app) printPhotos(list []string) {
	a.printf("%d/%d photos\n", len(list), photos.MaxPhotos)
	for i, p := range list {
		a.printf("  %d. %s\n", i+1, format.PhotoURL(a.cfg.API.BaseURL, p))
	}
}
