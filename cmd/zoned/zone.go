package main

import (
	"fmt"
	"strings"

	"github.com/cuemby/zoned/pkg/client"
	"github.com/cuemby/zoned/pkg/hostedzone"
	"github.com/cuemby/zoned/pkg/types"
	"github.com/spf13/cobra"
)

// Zone commands
var zoneCmd = &cobra.Command{
	Use:   "zone",
	Short: "Manage hosted zones through the management API",
}

var zoneListCmd = &cobra.Command{
	Use:   "list",
	Short: "List hosted zones",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-38s %-30s %s\n", "ID", "NAME", "RECORD SETS")
		marker := ""
		for {
			page, err := c.ListZones(0, marker)
			if err != nil {
				return err
			}
			for _, hz := range page.HostedZones {
				fmt.Fprintf(out, "%-38s %-30s %d\n", hz.ID, hz.Name, hz.ResourceRecordSetCount)
			}
			if !page.IsTruncated {
				return nil
			}
			marker = page.NextMarker
		}
	},
}

var zoneGetCmd = &cobra.Command{
	Use:   "get ID|NAME",
	Short: "Show a hosted zone",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}
		resp, err := c.GetZone(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		hz := resp.HostedZone
		fmt.Fprintf(out, "ID:           %s\n", hz.ID)
		fmt.Fprintf(out, "Name:         %s\n", hz.Name)
		if hz.CallerReference != "" {
			fmt.Fprintf(out, "Reference:    %s\n", hz.CallerReference)
		}
		if hz.Comment != "" {
			fmt.Fprintf(out, "Comment:      %s\n", hz.Comment)
		}
		fmt.Fprintf(out, "Record sets:  %d\n", hz.ResourceRecordSetCount)
		fmt.Fprintf(out, "Name servers: %s\n", strings.Join(resp.DelegationSet.NameServers, ", "))
		return nil
	},
}

var zoneCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a hosted zone",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, _ := cmd.Flags().GetString("caller-reference")
		comment, _ := cmd.Flags().GetString("comment")

		c, err := apiClient(cmd)
		if err != nil {
			return err
		}
		resp, err := c.CreateZone(args[0], ref, comment)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Zone %s created\n", resp.HostedZone.Name)
		fmt.Fprintf(out, "  ID: %s\n", resp.HostedZone.ID)
		fmt.Fprintf(out, "  Change: %s (%s)\n", resp.ChangeInfo.ID, resp.ChangeInfo.Status)
		fmt.Fprintf(out, "  Name servers: %s\n", strings.Join(resp.DelegationSet.NameServers, ", "))
		return nil
	},
}

var zoneDeleteCmd = &cobra.Command{
	Use:   "delete ID|NAME",
	Short: "Delete a hosted zone",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}
		change, err := c.DeleteZone(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Zone %s deleted (change %s)\n", args[0], change.ID)
		return nil
	},
}

// Record commands
var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Manage resource records through the management API",
}

var recordListCmd = &cobra.Command{
	Use:   "list ZONE",
	Short: "List the record sets of a zone",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-30s %-6s %-8s %s\n", "NAME", "TYPE", "TTL", "VALUES")
		name, rtype := "", ""
		for {
			page, err := c.ListRecords(args[0], name, rtype, 0)
			if err != nil {
				return err
			}
			for _, set := range page.ResourceRecordSets {
				fmt.Fprintf(out, "%-30s %-6s %-8d %s\n", set.Name, set.Type, set.TTL, strings.Join(set.Values, ", "))
			}
			if !page.IsTruncated {
				return nil
			}
			name, rtype = page.NextRecordName, page.NextRecordType
		}
	},
}

var recordAddCmd = &cobra.Command{
	Use:   "add ZONE NAME TYPE VALUE...",
	Short: "Add records to a zone",
	Example: `  zoned record add example.com. www A 192.0.2.10 192.0.2.11
  zoned record add example.com. @ MX "10 mail"`,
	Args: cobra.MinimumNArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		return changeRecords(cmd, types.ActionCreate, args)
	},
}

var recordDeleteCmd = &cobra.Command{
	Use:   "delete ZONE NAME TYPE VALUE...",
	Short: "Delete records from a zone",
	Args:  cobra.MinimumNArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		return changeRecords(cmd, types.ActionDelete, args)
	},
}

var changeCmd = &cobra.Command{
	Use:   "change ID",
	Short: "Show the status of a change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}
		change, err := c.GetChange(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", change.ID, change.Status, change.SubmittedAt)
		return nil
	},
}

func changeRecords(cmd *cobra.Command, action types.ChangeAction, args []string) error {
	ttl, _ := cmd.Flags().GetUint32("ttl")
	comment, _ := cmd.Flags().GetString("comment")

	c, err := apiClient(cmd)
	if err != nil {
		return err
	}
	change, err := c.ChangeRecords(args[0], comment, []hostedzone.Change{{
		Action: action,
		Name:   args[1],
		Type:   strings.ToUpper(args[2]),
		TTL:    ttl,
		Values: args[3:],
	}})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s %s %s: change %s (%s)\n", action, args[1], strings.ToUpper(args[2]), change.ID, change.Status)
	return nil
}

func apiClient(cmd *cobra.Command) (*client.Client, error) {
	addr, _ := cmd.Flags().GetString("api")
	return client.NewClient(addr)
}

func init() {
	zoneCmd.AddCommand(zoneListCmd)
	zoneCmd.AddCommand(zoneGetCmd)
	zoneCmd.AddCommand(zoneCreateCmd)
	zoneCmd.AddCommand(zoneDeleteCmd)

	recordCmd.AddCommand(recordListCmd)
	recordCmd.AddCommand(recordAddCmd)
	recordCmd.AddCommand(recordDeleteCmd)

	for _, c := range []*cobra.Command{zoneCmd, recordCmd, changeCmd} {
		c.PersistentFlags().String("api", client.DefaultAddr, "Management API address")
	}

	zoneCreateCmd.Flags().String("caller-reference", "", "Caller reference stored with the zone")
	zoneCreateCmd.Flags().String("comment", "", "Zone comment")

	for _, c := range []*cobra.Command{recordAddCmd, recordDeleteCmd} {
		c.Flags().Uint32("ttl", 3600, "Record TTL in seconds")
		c.Flags().String("comment", "", "Change comment")
	}

	rootCmd.AddCommand(zoneCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(changeCmd)
}
