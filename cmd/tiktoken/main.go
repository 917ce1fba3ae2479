// Command tiktoken is the thin entry-point facade over the core
// encode/decode/count operations: a CLI for scripting and ad-hoc
// inspection, not a home for algorithmic work. Flags and subcommands
// only; everything it does delegates straight to the root package.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	tiktoken "github.com/openbpe/tiktoken"
	"github.com/openbpe/tiktoken/bpe"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var encodingName string

	root := &cobra.Command{
		Use:           "tiktoken",
		Short:         "BPE encode, decode, and count text for the built-in OpenAI-compatible encodings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&encodingName, "encoding", tiktoken.CL100kBase, "encoding name, model alias, or model prefix")

	root.AddCommand(newEncodeCmd(&encodingName))
	root.AddCommand(newDecodeCmd(&encodingName))
	root.AddCommand(newCountCmd(&encodingName))
	root.AddCommand(newListCmd())
	return root
}

func newEncodeCmd(encodingName *string) *cobra.Command {
	var allowSpecials bool
	cmd := &cobra.Command{
		Use:   "encode [text]",
		Short: "Encode text into token IDs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enc, err := tiktoken.GetEncoding(*encodingName)
			if err != nil {
				return err
			}
			allowed := bpe.PolicyNoneValue()
			if allowSpecials {
				allowed = bpe.PolicyAllValue()
			}
			toks, err := enc.Encode(args[0], allowed, bpe.PolicyAutomaticValue())
			if err != nil {
				return err
			}
			for i, t := range toks {
				if i > 0 {
					fmt.Print(" ")
				}
				fmt.Print(t)
			}
			fmt.Println()
			return nil
		},
	}
	cmd.Flags().BoolVar(&allowSpecials, "allow-specials", false, "recognize special-token literals in the input")
	return cmd
}

func newDecodeCmd(encodingName *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode [tokens...]",
		Short: "Decode space-separated token IDs back into text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enc, err := tiktoken.GetEncoding(*encodingName)
			if err != nil {
				return err
			}
			toks := make([]bpe.Rank, len(args))
			for i, a := range args {
				var v uint32
				if _, err := fmt.Sscanf(a, "%d", &v); err != nil {
					return fmt.Errorf("invalid token %q: %w", a, err)
				}
				toks[i] = bpe.Rank(v)
			}
			fmt.Println(enc.Decode(toks))
			return nil
		},
	}
	return cmd
}

func newCountCmd(encodingName *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "count [text]",
		Short: "Print the token count for text without materializing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enc, err := tiktoken.GetEncoding(*encodingName)
			if err != nil {
				return err
			}
			n, err := enc.CountTokens(args[0], bpe.PolicyNoneValue(), bpe.PolicyAutomaticValue())
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		},
	}
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every currently registered encoding name",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range tiktoken.ListEncodings() {
				fmt.Println(name)
			}
			return nil
		},
	}
}
