package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/bilistream/bilistream/internal/credential"
	"github.com/bilistream/bilistream/internal/domain"
	"github.com/bilistream/bilistream/pkg/bili"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate and persist a credential file",
}

var loginCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the persisted credential against the platform",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, closeLog := setupLogger("login")
		defer closeLog()

		sess, err := credential.LoginByCookies(cmd.Context(), credentialFile, cfg.Credential.Passphrase, clientConfig())
		if err != nil {
			return err
		}
		logger.Info("credential valid", "mid", sess.Mid())
		return nil
	},
}

var loginQRCmd = &cobra.Command{
	Use:   "qr",
	Short: "Login by scanning a QR code",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, closeLog := setupLogger("login")
		defer closeLog()

		passport := bili.NewPassport(clientConfig())
		qr, err := passport.NewQRCode(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Scan with the bilibili app: %s\n", qr.URL)

		// Poll until confirmed or expired.
		for {
			cred, err := passport.PollQRCode(cmd.Context(), qr.AuthCode)
			switch {
			case err == nil:
				return saveCredential(cred, logger)
			case errors.Is(err, domain.ErrQRNotScanned):
				select {
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				case <-time.After(3 * time.Second):
				}
			default:
				return err
			}
		}
	},
}

var loginSMSCmd = &cobra.Command{
	Use:   "sms <country-code> <phone>",
	Short: "Login with an SMS verification code",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, closeLog := setupLogger("login")
		defer closeLog()

		countryCode, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid country code %q: %w", args[0], err)
		}

		passport := bili.NewPassport(clientConfig())
		challenge, err := passport.SendSMS(cmd.Context(), countryCode, args[1])
		if err != nil {
			return err
		}

		fmt.Print("Verification code: ")
		var code string
		if _, err := fmt.Scanln(&code); err != nil {
			return fmt.Errorf("read code: %w", err)
		}

		cred, err := passport.LoginBySMS(cmd.Context(), code, challenge)
		if err != nil {
			return err
		}
		return saveCredential(cred, logger)
	},
}

var loginWebCmd = &cobra.Command{
	Use:   "web",
	Short: "Import an externally obtained web session (SESSDATA + bili_jct)",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, closeLog := setupLogger("login")
		defer closeLog()

		sessData, err := promptSecret("SESSDATA")
		if err != nil {
			return err
		}
		biliJCT, err := promptSecret("bili_jct")
		if err != nil {
			return err
		}

		cred := bili.FromWebCookies(sessData, biliJCT)
		sess := bili.NewSession(cred, clientConfig())
		if err := sess.Validate(cmd.Context()); err != nil {
			return err
		}
		return saveCredential(cred, logger)
	},
}

func init() {
	loginCmd.AddCommand(loginCheckCmd)
	loginCmd.AddCommand(loginQRCmd)
	loginCmd.AddCommand(loginSMSCmd)
	loginCmd.AddCommand(loginWebCmd)
}

func saveCredential(cred *bili.Credential, logger *slog.Logger) error {
	if err := credential.Save(credentialFile, cred, cfg.Credential.Passphrase); err != nil {
		return err
	}
	logger.Info("credential saved", "file", credentialFile)
	return nil
}

// promptSecret reads a secret without echoing it.
func promptSecret(name string) (string, error) {
	fmt.Printf("%s: ", name)
	value, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(value), nil
}
