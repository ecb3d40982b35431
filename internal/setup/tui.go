package setup

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/astarte-labs/stellium/config"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// RunTUI launches the terminal configuration wizard and writes the
// result to config.gen.yaml.
func RunTUI() error {
	var (
		listenAddr  string
		tlsDomain   string
		houseSystem string
		ephemeris   string
		starCatalog string
		lunations   string
		journalDir  string
		provider    string
		baseURL     string
		latStr      string
		lonStr      string
		place       string
		confirm     bool
	)

	// defaults
	listenAddr = config.DefaultListenAddr
	houseSystem = config.DefaultHouseSystem
	provider = "nominatim"
	journalDir = "journal"

	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(headerStyle.Render("STELLIUM CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Let's get your chart engine serving in style.\n"))

	// server
	fmt.Println(stepStyle.Render("STEP 1: SERVER"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Listen Address").
				Description("host:port, e.g. :8080").
				Value(&listenAddr).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("listen address cannot be empty")
					}
					return nil
				}),
			huh.NewInput().
				Title("TLS Domain").
				Description("Leave empty for plain HTTP; a domain enables automatic certificates").
				Value(&tlsDomain),
		),
	).Run()
	if err != nil {
		return err
	}

	// house system
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("STELLIUM CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: HOUSE SYSTEM"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Choose the house system").
				Options(
					huh.NewOption("Equal (30° houses from the ascendant)", "equal"),
					huh.NewOption("Whole Sign", "whole_sign"),
				).
				Value(&houseSystem),
		),
	).Run()
	if err != nil {
		return err
	}

	// datasets
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("STELLIUM CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 3: DATASETS"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Ephemeris CSV").
				Description("Path to the position dataset (required)").
				Value(&ephemeris).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("ephemeris path cannot be empty")
					}
					return nil
				}),
			huh.NewInput().
				Title("Star Catalog CSV").
				Description("Leave empty to use the built-in ten-star catalog").
				Value(&starCatalog),
			huh.NewInput().
				Title("Lunation CSV").
				Description("Leave empty to disable the lunation endpoints").
				Value(&lunations),
			huh.NewInput().
				Title("Journal Directory").
				Description("Determinism audit WAL; leave empty to disable").
				Value(&journalDir),
		),
	).Run()
	if err != nil {
		return err
	}

	// geocoding
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("STELLIUM CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 4: GEOCODING"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Place Resolver").
				Options(
					huh.NewOption("Nominatim (OpenStreetMap)", "nominatim"),
					huh.NewOption("GeoIP", "geoip"),
					huh.NewOption("Static coordinates", "static"),
				).
				Value(&provider),
		),
	).Run()
	if err != nil {
		return err
	}

	if provider == "static" {
		fmt.Print("\033[H\033[2J")
		fmt.Println(headerStyle.Render("STELLIUM CONFIG WIZARD"))
		fmt.Println(stepStyle.Render("STEP 5: SITE COORDINATES"))
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Latitude").
					Description("Decimal degrees, -90 to 90").
					Value(&latStr).
					Validate(validateDegree(90)),
				huh.NewInput().
					Title("Longitude").
					Description("Decimal degrees, -180 to 180").
					Value(&lonStr).
					Validate(validateDegree(180)),
				huh.NewInput().
					Title("Place Label").
					Value(&place),
			),
		).Run()
		if err != nil {
			return err
		}
	} else {
		fmt.Print("\033[H\033[2J")
		fmt.Println(headerStyle.Render("STELLIUM CONFIG WIZARD"))
		fmt.Println(stepStyle.Render("STEP 5: RESOLVER ENDPOINT"))
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Base URL").
					Description("Leave empty for the provider default").
					Value(&baseURL),
			),
		).Run()
		if err != nil {
			return err
		}
	}

	// confirmation
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("STELLIUM CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	summary := fmt.Sprintf(
		"Listen: %s\nHouses: %s\nEphemeris: %s\nGeocode: %s\nJournal: %s\n",
		listenAddr, houseSystem, ephemeris, provider, journalDir,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and start").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	cfg := config.Config{
		ListenAddr:      listenAddr,
		TLSDomain:       tlsDomain,
		EphemerisPath:   ephemeris,
		StarCatalogPath: starCatalog,
		LunationPath:    lunations,
		JournalDir:      journalDir,
		HouseSystem:     houseSystem,
		Geocode: config.Geocode{
			Provider: provider,
			BaseURL:  baseURL,
			Place:    place,
		},
	}
	if provider == "static" {
		lat, _ := decimal.NewFromString(latStr)
		lon, _ := decimal.NewFromString(lonStr)
		cfg.Geocode.Lat, _ = lat.Float64()
		cfg.Geocode.Lon, _ = lon.Float64()
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	filename := "config.gen.yaml"
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nStarting server...", filename)))
	time.Sleep(1500 * time.Millisecond) // small pause to read success message
	return nil
}

func validateDegree(limit int64) func(string) error {
	max := decimal.NewFromInt(limit)
	return func(s string) error {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return fmt.Errorf("must be a valid number")
		}
		if d.LessThan(max.Neg()) || d.GreaterThan(max) {
			return fmt.Errorf("must be between %s and %s", max.Neg(), max)
		}
		return nil
	}
}
