package cli

import (
	"encoding/base64"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/iudanet/milkledger/internal/crypto"
)

// secretSize длина генерируемых секретов в байтах
const secretSize = 32

// secrets результат команды init
type secrets struct {
	SigningSecret string `json:"signingSecret"`
	PushSecret    string `json:"pushSecret"`
}

// NewInitCommand создает команду генерации секретов.
// Секреты только печатаются; сохранение в конфигурацию остается оператору.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "init",
		Short:        "Generate signing and push secrets",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			signing, err := crypto.GenerateSecret(secretSize)
			if err != nil {
				return err
			}
			push, err := crypto.GenerateSecret(secretSize)
			if err != nil {
				return err
			}

			out := secrets{
				SigningSecret: base64.RawURLEncoding.EncodeToString(signing),
				PushSecret:    base64.RawURLEncoding.EncodeToString(push),
			}

			return newFormatter(rootOpts, cmd).render(out, func(w io.Writer) {
				_, _ = fmt.Fprintln(w, "# add to milkledger.yaml; push_secret must match server.push_secret")
				_, _ = fmt.Fprintln(w, "client:")
				_, _ = fmt.Fprintf(w, "  signing_secret: %q\n", out.SigningSecret)
				_, _ = fmt.Fprintf(w, "  push_secret: %q\n", out.PushSecret)
			})
		},
	}
}
