package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"libtrack/library"
)

// ------------------ Books ------------------

func newBookCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "book", Short: "Manage the catalog"}
	cmd.AddCommand(newBookAddCmd(a), newBookListCmd(a), newBookUpdateCmd(a), newBookDeleteCmd(a))
	return cmd
}

func newBookAddCmd(a *app) *cobra.Command {
	var (
		title, author string
		quantity      int
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book to the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			book, err := a.mgr.AddBook(title, author, quantity)
			if err != nil {
				return fmt.Errorf("adding book: %w", err)
			}
			if ok, err := a.printJSON(book); ok {
				return err
			}
			fmt.Fprintf(a.out, "Added book ID %d: '%s' by %s (%d copies)\n", book.ID, book.Title, book.Author, book.Quantity)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "book title")
	cmd.Flags().StringVar(&author, "author", "", "book author")
	cmd.Flags().IntVar(&quantity, "quantity", 1, "number of copies owned")
	return cmd
}

func newBookListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			books, err := a.mgr.ListBooks()
			if err != nil {
				return err
			}
			if ok, err := a.printJSON(books); ok {
				return err
			}
			if len(books) == 0 {
				fmt.Fprintln(a.out, "No books in library.")
				return nil
			}
			fmt.Fprintf(a.out, "%-5s %-30s %-25s %9s %9s\n", "ID", "Title", "Author", "Quantity", "Available")
			fmt.Fprintln(a.out, strings.Repeat("-", 82))
			for _, b := range books {
				fmt.Fprintln(a.out, library.PrettyBook(b))
			}
			return nil
		},
	}
}

func newBookUpdateCmd(a *app) *cobra.Command {
	var (
		title, author string
		quantity      int
	)
	cmd := &cobra.Command{
		Use:   "update <book-id>",
		Short: "Change a book's title, author or quantity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("book", args[0])
			if err != nil {
				return err
			}
			var u library.BookUpdate
			if cmd.Flags().Changed("title") {
				u.Title = &title
			}
			if cmd.Flags().Changed("author") {
				u.Author = &author
			}
			if cmd.Flags().Changed("quantity") {
				u.Quantity = &quantity
			}
			book, err := a.mgr.UpdateBook(id, u)
			if err != nil {
				return fmt.Errorf("updating book: %w", err)
			}
			if ok, err := a.printJSON(book); ok {
				return err
			}
			fmt.Fprintf(a.out, "Updated book ID %d: %d of %d copies available\n", book.ID, book.Available, book.Quantity)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&author, "author", "", "new author")
	cmd.Flags().IntVar(&quantity, "quantity", 0, "new number of copies owned")
	return cmd
}

func newBookDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <book-id>",
		Short: "Remove a book with no outstanding loans",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("book", args[0])
			if err != nil {
				return err
			}
			if err := a.mgr.DeleteBook(id); err != nil {
				return fmt.Errorf("deleting book: %w", err)
			}
			fmt.Fprintf(a.out, "Deleted book ID %d\n", id)
			return nil
		},
	}
}

// ------------------ Circulation ------------------

func newIssueCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "issue <user-id> <book-id>",
		Short: "Lend a copy of a book to a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID("user", args[0])
			if err != nil {
				return err
			}
			bookID, err := parseID("book", args[1])
			if err != nil {
				return err
			}
			rec, err := a.mgr.IssueBook(userID, bookID)
			if err != nil {
				return fmt.Errorf("issuing book: %w", err)
			}
			if ok, err := a.printJSON(rec); ok {
				return err
			}
			fmt.Fprintf(a.out, "Book %d issued to user %d (issue ID %d)\n", bookID, userID, rec.ID)
			return nil
		},
	}
}

func newReturnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "return <issue-id>",
		Short: "Return a borrowed copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("issue", args[0])
			if err != nil {
				return err
			}
			if err := a.mgr.ReturnBook(id); err != nil {
				return fmt.Errorf("returning book: %w", err)
			}
			fmt.Fprintf(a.out, "Issue %d returned\n", id)
			return nil
		},
	}
}

func newIssuesCmd(a *app) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "issues",
		Short: "List loans, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				views []library.IssueView
				err   error
			)
			if user != "" {
				userID, perr := parseID("user", user)
				if perr != nil {
					return perr
				}
				views, err = a.mgr.ListIssuesForUser(userID)
			} else {
				views, err = a.mgr.ListAllIssues()
			}
			if err != nil {
				return err
			}
			if ok, err := a.printJSON(views); ok {
				return err
			}
			printIssues(a, views)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "only show loans of this user ID")
	return cmd
}

func printIssues(a *app, views []library.IssueView) {
	if len(views) == 0 {
		fmt.Fprintln(a.out, "No issue records.")
		return
	}
	fmt.Fprintf(a.out, "%-6s %-15s %-30s %-20s %-20s\n", "ID", "User", "Title", "Issued", "Returned")
	fmt.Fprintln(a.out, strings.Repeat("-", 95))
	for _, v := range views {
		fmt.Fprintln(a.out, library.PrettyIssue(v))
	}
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the dashboard counters and recent transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := a.mgr.Dashboard(a.cfg.UI.RecentIssuesLimit)
			if err != nil {
				return err
			}
			if ok, err := a.printJSON(d); ok {
				return err
			}
			fmt.Fprintf(a.out, "Total books in library: %d\n", d.TotalCopies)
			fmt.Fprintf(a.out, "Currently issued:       %d\n", d.IssuedCopies)
			fmt.Fprintf(a.out, "Active borrowers:       %d\n\n", d.ActiveBorrowers)
			fmt.Fprintln(a.out, "Recent transactions:")
			printIssues(a, d.Recent)
			return nil
		},
	}
}

// ------------------ Users ------------------

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Manage accounts"}
	cmd.AddCommand(newUserRegisterCmd(a), newUserListCmd(a), newUserLoginCmd(a))
	return cmd
}

// password returns the flag value or prompts for it.
func (a *app) password(flagValue, prompt string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	pw, err := a.readPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return pw, nil
}

func newUserRegisterCmd(a *app) *cobra.Command {
	var username, fullName, pw string
	var admin bool
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := a.password(pw, fmt.Sprintf("Enter password for %s: ", username))
			if err != nil {
				return err
			}
			role := library.RoleBorrower
			if admin {
				role = library.RoleAdmin
			}
			u, err := a.mgr.Users.CreateUser(username, password, fullName, role)
			if err != nil {
				return fmt.Errorf("registering user: %w", err)
			}
			if ok, err := a.printJSON(u); ok {
				return err
			}
			fmt.Fprintf(a.out, "Added %s '%s' with ID %d\n", u.Role, u.Username, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&fullName, "name", "", "display name")
	cmd.Flags().StringVar(&pw, "password", "", "password (prompted when omitted)")
	cmd.Flags().BoolVar(&admin, "admin", false, "create an administrator")
	return cmd
}

func newUserListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			users, err := a.mgr.Users.ListUsers()
			if err != nil {
				return err
			}
			if ok, err := a.printJSON(users); ok {
				return err
			}
			if len(users) == 0 {
				fmt.Fprintln(a.out, "No users registered.")
				return nil
			}
			fmt.Fprintf(a.out, "%-5s %-20s %-10s %-30s\n", "ID", "Username", "Role", "Name")
			fmt.Fprintln(a.out, strings.Repeat("-", 68))
			for _, u := range users {
				fmt.Fprintf(a.out, "%-5d %-20s %-10s %-30s\n", u.ID, library.Truncate(u.Username, 20), u.Role, library.Truncate(u.FullName, 30))
			}
			return nil
		},
	}
}

func newUserLoginCmd(a *app) *cobra.Command {
	var username, pw string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Check credentials and print the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := a.password(pw, "Enter your password: ")
			if err != nil {
				return err
			}
			u, err := a.mgr.Users.Authenticate(username, password)
			if errors.Is(err, library.ErrInvalidCredentials) {
				return fmt.Errorf("authentication failed: %w", err)
			}
			if err != nil {
				return err
			}
			if ok, err := a.printJSON(u); ok {
				return err
			}
			fmt.Fprintf(a.out, "Welcome, %s (ID %d, %s)\n", u.FullName, u.ID, u.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&pw, "password", "", "password (prompted when omitted)")
	return cmd
}
