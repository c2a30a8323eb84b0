package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrWong99/digitspan/internal/app"
	"github.com/MrWong99/digitspan/internal/digits"
	"github.com/MrWong99/digitspan/internal/grade"
)

// normalizerFlags are shared by the one-shot commands.
type normalizerFlags struct {
	language string
	phonetic bool
	jsonOut  bool
}

func (f *normalizerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.language, "language", "l", "", "language tag: en, hi or kn (default from config)")
	cmd.Flags().BoolVar(&f.phonetic, "phonetic", false, "enable misspelling recovery")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "print JSON instead of plain text")
}

// normalizer builds a normalizer from the config file, with flag overrides.
func (f *normalizerFlags) normalizer(cmd *cobra.Command, opts *rootOptions) (*digits.Normalizer, string, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, "", err
	}
	if f.phonetic {
		cfg.Normalizer.PhoneticRecovery = true
	}
	lang := f.language
	if lang == "" {
		lang = cfg.Normalizer.DefaultLanguage
	}
	return app.NewNormalizer(cfg.Normalizer), lang, nil
}

// transcriptArg joins args, or reads r when there are none.
func transcriptArg(args []string, r io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(b), nil
}

func newParseCmd(opts *rootOptions) *cobra.Command {
	var flags normalizerFlags

	cmd := &cobra.Command{
		Use:   "parse [transcript...]",
		Short: "Print the digits in a transcript",
		Long:  "Print the digits in a transcript. With no arguments the transcript is read from stdin.",
		Example: `  digitspan parse four seven nine
  digitspan parse -l hi "चार नौ"
  echo "ನಾಲ್ಕು ಒಂಬತ್ತು" | digitspan parse -l kn --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, lang, err := flags.normalizer(cmd, opts)
			if err != nil {
				return err
			}
			transcript, err := transcriptArg(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			res := n.Analyze(transcript, lang)
			out := cmd.OutOrStdout()
			if flags.jsonOut {
				return json.NewEncoder(out).Encode(struct {
					Digits   []int  `json:"digits"`
					Strategy string `json:"strategy"`
					Language string `json:"language"`
				}{res.Digits, string(res.Strategy), string(res.Language)})
			}
			_, err = fmt.Fprintln(out, grade.Format(res.Digits))
			return err
		},
	}
	flags.register(cmd)
	return cmd
}

func newGradeCmd(opts *rootOptions) *cobra.Command {
	var (
		flags    normalizerFlags
		expected string
	)

	cmd := &cobra.Command{
		Use:   "grade --expected SEQ [transcript...]",
		Short: "Grade a transcript against the expected digits",
		Long: "Grade a transcript against the expected digits. Exits non-zero when the answer is wrong. " +
			"With no arguments the transcript is read from stdin.",
		Example: `  digitspan grade --expected 4957 four nine five seven
  digitspan grade -e "4 9" -l hi "चार नौ"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			want, err := grade.ParseSequence(expected)
			if err != nil {
				return err
			}
			n, lang, err := flags.normalizer(cmd, opts)
			if err != nil {
				return err
			}
			transcript, err := transcriptArg(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			got := n.Parse(transcript, lang)
			verdict := grade.Compare(want, got)

			out := cmd.OutOrStdout()
			if flags.jsonOut {
				err = json.NewEncoder(out).Encode(struct {
					Digits []int `json:"digits"`
					grade.Result
				}{got, verdict})
			} else {
				_, err = fmt.Fprintf(out, "%s %s\n", grade.Format(got), verdict.Outcome)
			}
			if err != nil {
				return err
			}
			if !verdict.Correct {
				return errSilent
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&expected, "expected", "e", "", "expected sequence, e.g. 4957 or \"4 9 5 7\"")
	_ = cmd.MarkFlagRequired("expected")
	return cmd
}
