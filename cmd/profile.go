package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/vfs-autofill/api/schemas"
	"github.com/xkilldash9x/vfs-autofill/internal/observability"
	"github.com/xkilldash9x/vfs-autofill/internal/profile"
	"github.com/xkilldash9x/vfs-autofill/internal/store"
)

// openProfiles connects to the configured store. The returned func closes it.
func openProfiles(cmd *cobra.Command) (*profile.Service, func(), error) {
	cfg, err := configFrom(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	logger := observability.GetLogger()
	kv, err := store.Open(cmd.Context(), cfg.Store, logger)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := kv.Close(); err != nil {
			logger.Sugar().Warnf("closing profile store: %v", err)
		}
	}
	return profile.NewService(kv, cfg.Store.Key, logger), closeFn, nil
}

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "profile",
		Aliases: []string{"profiles"},
		Short:   "Manage saved applicant profiles",
	}
	cmd.AddCommand(
		newProfileListCmd(),
		newProfileShowCmd(),
		newProfileAddCmd(),
		newProfileEditCmd(),
		newProfileDeleteCmd(),
		newProfileImportCmd(),
		newProfileExportCmd(),
	)
	return cmd
}

func newProfileListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openProfiles(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			profiles, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(profiles) == 0 {
				fmt.Fprintln(out, "No profiles saved. Add one with 'vfs-autofill profile add'.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tNAME\tAPPLICANT\tPASSPORT\tID")
			for i, p := range profiles {
				fmt.Fprintf(tw, "%d\t%s\t%s %s\t%s\t%s\n", i+1, p.ProfileName, p.FirstName, p.LastName, p.PassportNumber, p.ID)
			}
			fmt.Fprintf(tw, "\n%d of %d profiles used\n", len(profiles), schemas.MaxProfiles)
			return tw.Flush()
		},
	}
}

func newProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|#>",
		Short: "Show one profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openProfiles(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			p, _, err := svc.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printProfile(cmd.OutOrStdout(), p)
		},
	}
}

func printProfile(w io.Writer, p schemas.Profile) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"ID", p.ID},
		{"Profile", p.ProfileName},
		{"First name", p.FirstName},
		{"Last name", p.LastName},
		{"Gender", p.Gender},
		{"Nationality", p.Nationality},
		{"Date of birth", p.DateOfBirth},
		{"Passport", p.PassportNumber},
		{"Passport expiry", p.PassportExpiry},
		{"Mobile", "+" + p.CountryCode + " " + p.MobileNumber},
		{"Email", p.Email},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s:\t%s\n", r[0], r[1])
	}
	if !p.CreatedAt.IsZero() {
		fmt.Fprintf(tw, "Saved:\t%s\n", p.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

// profileFlags holds one flag per editable profile attribute.
type profileFlags struct {
	name, first, last, gender, nationality string
	dob, passport, expiry                   string
	countryCode, mobile, email              string
}

func (f *profileFlags) register(cmd *cobra.Command, defaults bool) {
	fs := cmd.Flags()
	fs.StringVar(&f.name, "name", "", "profile name, e.g. \"Juan - tourist\"")
	fs.StringVar(&f.first, "first-name", "", "first name as printed in the passport")
	fs.StringVar(&f.last, "last-name", "", "last name as printed in the passport")
	fs.StringVar(&f.dob, "dob", "", "date of birth, DD/MM/YYYY")
	fs.StringVar(&f.passport, "passport", "", "passport number")
	fs.StringVar(&f.expiry, "passport-expiry", "", "passport expiry date, DD/MM/YYYY")
	fs.StringVar(&f.mobile, "mobile", "", "mobile number without the country code")
	fs.StringVar(&f.email, "email", "", "email address")

	gender, nationality, code := "", "", ""
	if defaults {
		gender, nationality, code = schemas.DefaultGender, schemas.DefaultNationality, schemas.DefaultCountryCode
	}
	fs.StringVar(&f.gender, "gender", gender, "gender as shown in the form's dropdown")
	fs.StringVar(&f.nationality, "nationality", nationality, "current nationality as shown in the form's dropdown")
	fs.StringVar(&f.countryCode, "country-code", code, "mobile country code, 1 to 3 digits")
}

// apply copies the flags the user set onto p. With all, every flag is
// copied.
func (f *profileFlags) apply(cmd *cobra.Command, p *schemas.Profile, all bool) int {
	fields := []struct {
		flag string
		dst  *string
		val  string
	}{
		{"name", &p.ProfileName, f.name},
		{"first-name", &p.FirstName, f.first},
		{"last-name", &p.LastName, f.last},
		{"gender", &p.Gender, f.gender},
		{"nationality", &p.Nationality, f.nationality},
		{"dob", &p.DateOfBirth, f.dob},
		{"passport", &p.PassportNumber, f.passport},
		{"passport-expiry", &p.PassportExpiry, f.expiry},
		{"country-code", &p.CountryCode, f.countryCode},
		{"mobile", &p.MobileNumber, f.mobile},
		{"email", &p.Email, f.email},
	}
	changed := 0
	for _, fld := range fields {
		if all || cmd.Flags().Changed(fld.flag) {
			*fld.dst = fld.val
			changed++
		}
	}
	return changed
}

func newProfileAddCmd() *cobra.Command {
	var flags profileFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Save a new profile (at most 5)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openProfiles(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			var p schemas.Profile
			flags.apply(cmd, &p, true)
			saved, err := svc.Save(cmd.Context(), p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profile %q saved (%s)\n", saved.ProfileName, saved.ID)
			return nil
		},
	}
	flags.register(cmd, true)
	return cmd
}

func newProfileEditCmd() *cobra.Command {
	var flags profileFlags
	cmd := &cobra.Command{
		Use:   "edit <id|#>",
		Short: "Change fields of a saved profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openProfiles(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			p, _, err := svc.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if flags.apply(cmd, &p, false) == 0 {
				return fmt.Errorf("nothing to change: pass at least one field flag")
			}
			saved, err := svc.Save(cmd.Context(), p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profile %q updated (%s)\n", saved.ProfileName, saved.ID)
			return nil
		},
	}
	flags.register(cmd, false)
	return cmd
}

func newProfileDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id|#>",
		Aliases: []string{"rm"},
		Short:   "Delete a saved profile",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openProfiles(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			removed, err := svc.DeleteRef(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profile %q deleted\n", removed.ProfileName)
			return nil
		},
	}
}

func newProfileImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Import profiles from a JSON export or array",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", args[0], err)
				}
				defer f.Close()
				r = f
			}
			profiles, err := profile.ReadJSON(r)
			if err != nil {
				return err
			}

			svc, closeFn, err := openProfiles(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			n, err := svc.Import(cmd.Context(), profiles)
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d profiles\n", n, len(profiles))
			return err
		},
	}
}

func newProfileExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file|-]",
		Short: "Export saved profiles as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openProfiles(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			profiles, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(args) == 0 || args[0] == "-" {
				return profile.WriteJSON(cmd.OutOrStdout(), profiles)
			}

			f, err := os.OpenFile(args[0], os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", args[0], err)
			}
			if err := profile.WriteJSON(f, profiles); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d profiles to %s\n", len(profiles), args[0])
			return nil
		},
	}
}
