package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/certkeeper/certkeeper/cmd/certkeeper/config"
	"github.com/certkeeper/certkeeper/storage"
	"github.com/certkeeper/certkeeper/verification"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verifies a certificate",
}

var verifyNumberCmd = &cobra.Command{
	Use:   "number <certificate number>",
	Short: "Verifies a certificate by its number",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showResult(verifier.VerifyByCertificateNumber(cliContext(cmd), args[0]))
	},
}

var verifyCodeCmd = &cobra.Command{
	Use:   "code <verification code>",
	Short: "Verifies a certificate by its verification code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showResult(verifier.VerifyByVerificationCode(cliContext(cmd), args[0]))
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch <certificate number>...",
	Short: "Verifies multiple certificates by their numbers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		results := verifier.BatchVerify(cliContext(cmd), args)
		if outputJSON {
			return printJSON(results)
		}
		numbers := make([]string, 0, len(results))
		for n := range results {
			numbers = append(numbers, n)
		}
		sort.Strings(numbers)
		for _, n := range numbers {
			printResult(n, results[n])
		}
		return nil
	},
}

var detailsCmd = &cobra.Command{
	Use:   "details <certificate number>",
	Short: "Shows the details of a certificate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		details, err := verifier.GetCertificateDetails(args[0])
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(details)
		}
		if err = printStruct(details.Record); err != nil {
			return err
		}
		if err = printStruct(details.Record.Certificate); err != nil {
			return err
		}
		return printStruct(details)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <certificate id>",
	Short: "Lists the verification attempts of a certificate, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := verifier.GetVerificationHistory(args[0])
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(entries)
		}
		for _, e := range entries {
			fmt.Println("--")
			if err = printStruct(e); err != nil {
				return err
			}
		}
		return nil
	},
}

var statsStart, statsEnd string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Shows verification statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		start, err := parseDateFlag(statsStart)
		if err != nil {
			return err
		}
		end, err := parseDateFlag(statsEnd)
		if err != nil {
			return err
		}
		stats, err := verifier.GetVerificationStatistics(start, end)
		if err != nil {
			return err
		}
		return printStruct(stats)
	},
}

var frequentWindow time.Duration
var frequentThreshold int

var frequentCmd = &cobra.Command{
	Use:   "frequent <certificate id>",
	Short: "Checks if a certificate was verified suspiciously often",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		frequent, err := verifier.IsFrequentlyVerified(args[0], frequentWindow, frequentThreshold)
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(map[string]bool{"frequent": frequent})
		}
		fmt.Printf("frequent: %t\n", frequent)
		return nil
	},
}

var revokeCmd = &cobra.Command{
	Use:   "revoke <certificate id>",
	Short: "Revokes an issued certificate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		record, err := issuer.Revoke(args[0])
		if err != nil {
			return err
		}
		return printStruct(record.Certificate)
	},
}

var reinstateCmd = &cobra.Command{
	Use:   "reinstate <certificate id>",
	Short: "Reinstates a revoked certificate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		record, err := issuer.Reinstate(args[0])
		if err != nil {
			return err
		}
		return printStruct(record.Certificate)
	},
}

var cleanupVerificationDays, cleanupExpiredRecordDays int
var cleanupArchiveDir string

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Purges old verification entries and long expired certificates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		policy := retention
		if cmd.Flags().Changed("verification-days") {
			policy.VerificationDays = cleanupVerificationDays
		}
		if cmd.Flags().Changed("expired-record-days") {
			policy.ExpiredRecordDays = cleanupExpiredRecordDays
		}
		var archive *storage.VerificationArchive
		var err error
		if cleanupArchiveDir != "" {
			archive, err = storage.OpenVerificationArchive(cleanupArchiveDir)
		} else {
			archive, err = config.OpenArchive(config.Get().Storage)
		}
		if err != nil {
			return err
		}
		if archive != nil {
			defer archive.Close()
			policy.Archive = archive
		}
		res, err := verifier.Cleanup(policy)
		if err != nil {
			return err
		}
		return printStruct(res)
	},
}

func showResult(res verification.Result) error {
	if outputJSON {
		return printJSON(res)
	}
	printResult("", res)
	return nil
}

func cliContext(cmd *cobra.Command) context.Context {
	return verification.WithRequestInfo(
		cmd.Context(), verification.RequestInfo{
			UserAgent: "ckcli",
		},
	)
}

func parseDateFlag(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(verification.DateFormat, v)
	if err != nil {
		return nil, errors.Errorf("invalid date '%s', expected format %s", v, verification.DateFormat)
	}
	return &t, nil
}

func init() {
	verifyCmd.AddCommand(verifyNumberCmd, verifyCodeCmd)

	statsCmd.Flags().StringVar(&statsStart, "start", "", "first day of the range (YYYY-MM-DD)")
	statsCmd.Flags().StringVar(&statsEnd, "end", "", "last day of the range (YYYY-MM-DD)")

	frequentCmd.Flags().DurationVar(&frequentWindow, "window", 0, "the time window to count verifications in")
	frequentCmd.Flags().IntVar(&frequentThreshold, "threshold", 0, "the number of verifications considered frequent")

	cleanupCmd.Flags().IntVar(
		&cleanupVerificationDays, "verification-days", 0, "keep verification entries for this many days",
	)
	cleanupCmd.Flags().IntVar(
		&cleanupExpiredRecordDays, "expired-record-days", 0,
		"keep certificates for this many days after their expiry",
	)
	cleanupCmd.Flags().StringVar(
		&cleanupArchiveDir, "archive", "", "archive purged verification entries into this directory",
	)

	rootCmd.AddCommand(
		verifyCmd, batchCmd, detailsCmd, historyCmd, statsCmd, frequentCmd, revokeCmd, reinstateCmd, cleanupCmd,
	)
}
