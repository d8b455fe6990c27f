package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"libtrack/internal/config"
	"libtrack/library"
)

func main() {
	var (
		dbPath string
		seed   bool
	)
	cmd := &cobra.Command{
		Use:   "import_books [catalog.csv]",
		Short: "Bulk-load books (title,author,quantity rows) and optionally the demo data",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfig("")
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.Database.Path = dbPath
			}
			manager, err := library.Open(library.ManagerConfig{
				DatabasePath: cfg.Database.Path,
				BusyTimeout:  cfg.Database.BusyTimeout,
				BcryptCost:   cfg.Auth.BcryptCost,
			})
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer manager.Close()

			if seed {
				fmt.Println("Seeding demo accounts and catalog...")
				if err := library.Seed(manager.Ledger, manager.Users); err != nil {
					return err
				}
			}
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				fmt.Printf("Importing books from %s...\n", args[0])
				ok, failed := importCSV(os.Stdout, manager.Ledger, f)
				fmt.Printf("\nImport complete!\n")
				fmt.Printf("Successfully imported: %d books\n", ok)
				fmt.Printf("Errors: %d\n", failed)
			}
			return printCatalog(manager.Ledger)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "database path (overrides LIBTRACK_DATABASE_PATH)")
	cmd.Flags().BoolVar(&seed, "seed", false, "load the demo accounts, and the demo books when the catalog is empty")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// importCSV adds one book per row and reports each row on w. A header row
// starting with "title" is skipped. Bad rows are reported and counted, not
// fatal. Line numbers are physical lines, so quoted multi-line fields do not
// shift them.
func importCSV(w io.Writer, ledger *library.Ledger, r io.Reader) (successCount, errorCount int) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true

	for first := true; ; first = false {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return successCount, errorCount
		}
		if err != nil {
			errorCount++
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				fmt.Fprintf(w, "ERROR - %v\n", err)
				return successCount, errorCount
			}
			fmt.Fprintf(w, "Line %d: ERROR - %v\n", pe.StartLine, pe.Err)
			if errors.Is(pe.Err, csv.ErrFieldCount) {
				continue
			}
			return successCount, errorCount
		}
		line, _ := cr.FieldPos(0)
		if first && strings.EqualFold(strings.TrimSpace(rec[0]), "title") {
			continue
		}

		quantity, err := strconv.Atoi(strings.TrimSpace(rec[2]))
		if err != nil {
			fmt.Fprintf(w, "Line %d: ERROR - invalid quantity %q\n", line, rec[2])
			errorCount++
			continue
		}
		fmt.Fprintf(w, "Importing: %s by %s... ", rec[0], rec[1])
		book, err := ledger.AddBook(rec[0], rec[1], quantity)
		if err != nil {
			fmt.Fprintf(w, "ERROR - %v\n", err)
			errorCount++
			continue
		}
		fmt.Fprintf(w, "SUCCESS (ID: %d)\n", book.ID)
		successCount++
	}
}

func printCatalog(ledger *library.Ledger) error {
	books, err := ledger.ListBooks()
	if err != nil {
		return fmt.Errorf("retrieving books: %w", err)
	}
	if len(books) == 0 {
		fmt.Println("\nCatalog is empty.")
		return nil
	}
	fmt.Println("\nCatalog:")
	fmt.Printf("%-5s %-30s %-25s %9s %9s\n", "ID", "Title", "Author", "Quantity", "Available")
	fmt.Println(strings.Repeat("-", 82))
	for _, b := range books {
		fmt.Println(library.PrettyBook(b))
	}
	return nil
}
