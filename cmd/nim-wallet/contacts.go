package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Manage your address book",
}

var contactsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved contacts",
	RunE:  runContactsList,
}

var contactsAddAddressCmd = &cobra.Command{
	Use:   "add-address [nickname] [address]",
	Short: "Save a wallet address under a nickname",
	Args:  cobra.ExactArgs(2),
	RunE:  runContactsAddAddress,
}

var contactsAddEmailCmd = &cobra.Command{
	Use:   "add-email [nickname] [email]",
	Short: "Save a registered user's email under a nickname",
	Args:  cobra.ExactArgs(2),
	RunE:  runContactsAddEmail,
}

var contactsRemoveCmd = &cobra.Command{
	Use:   "rm [id]",
	Short: "Delete a contact",
	Args:  cobra.ExactArgs(1),
	RunE:  runContactsRemove,
}

func init() {
	contactsCmd.AddCommand(contactsListCmd, contactsAddAddressCmd, contactsAddEmailCmd, contactsRemoveCmd)
}

func runContactsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	w, err := openWallet(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	contacts, err := w.api.Contacts(ctx)
	if err != nil {
		return err
	}
	if len(contacts) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No contacts yet.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNICKNAME\tTYPE\tVALUE")
	for _, c := range contacts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, c.Nickname, c.Type, c.Value)
	}
	return tw.Flush()
}

func runContactsAddAddress(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	w, err := openWallet(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	contact, err := w.api.AddAddressContact(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s)\n", contact.Nickname, contact.ID)
	return nil
}

func runContactsAddEmail(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	w, err := openWallet(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	contact, err := w.api.AddEmailContact(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s)\n", contact.Nickname, contact.ID)
	return nil
}

func runContactsRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	w, err := openWallet(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.api.DeleteContact(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Deleted.")
	return nil
}
