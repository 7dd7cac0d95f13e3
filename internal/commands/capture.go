package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/balkashynov/relay/internal/models"
	"github.com/balkashynov/relay/internal/session"
)

var captureCmd = &cobra.Command{
	Use:   "capture [session-id] <image>",
	Short: "Add a screenshot to a session and extract its entities",
	Long: `Add a screenshot to a session. The image is copied into images.dir, read
by the vision model and its entities are stored with the session.

With --new a fresh session is created first; it is named after what the
model sees in the screenshot.

Examples:
  relay capture 1f0c... ~/Desktop/hotel.png
  relay capture --new ~/Desktop/hotel.png`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		createNew, _ := cmd.Flags().GetBool("new")
		if createNew != (len(args) == 1) {
			return errors.New("pass either a session ID and an image, or --new and an image")
		}
		imagePath := args[len(args)-1]

		image, err := os.ReadFile(imagePath)
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}

		a, err := newApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		var sessionID string
		if createNew {
			s, err := a.backend.CreateSession(ctx, models.CreateSessionRequest{Name: models.DefaultSessionName})
			if err != nil {
				return fmt.Errorf("error creating session: %w", err)
			}
			sessionID = s.ID
		} else {
			s, err := a.backend.GetSession(ctx, args[0])
			if err != nil {
				return err
			}
			sessionID = s.ID
		}

		stored, err := storeImage(a.cfg.Images.Dir, sessionID, imagePath, image)
		if err != nil {
			return err
		}

		notify := session.NotifierFunc(func(c session.Change) {
			a.log.Debug("session changed", zap.String("session_id", c.SessionID), zap.Int("kind", int(c.Kind)))
		})
		capturer := session.NewCapturer(a.backend, a.analyzer, notify, a.log)

		fmt.Println("Analyzing screenshot...")
		shot, captureErr := capturer.Capture(ctx, sessionID, image, stored)
		if shot == nil {
			return captureErr
		}
		fmt.Printf("✓ Screenshot %s stored in session %s\n", shot.ID, sessionID)
		if shot.Summary != "" {
			fmt.Printf("  %s\n", shot.Summary)
		}

		if s, err := a.backend.GetSession(ctx, sessionID); err == nil && createNew {
			fmt.Printf("  Session: %s\n", s.Name)
		}
		if entities, err := a.backend.ListEntities(ctx, sessionID, false); err == nil {
			var found []string
			for _, e := range entities {
				if len(e.ScreenshotIDs) > 0 && e.ScreenshotIDs[0] == shot.ID {
					found = append(found, e.Title)
				}
			}
			if len(found) > 0 {
				fmt.Printf("  Entities: %s\n", strings.Join(found, ", "))
			}
		}

		if captureErr != nil {
			return fmt.Errorf("screenshot kept, but: %w", captureErr)
		}
		return nil
	},
}

// storeImage copies the image to <dir>/<session>/<uuid><ext> and returns
// the new path
func storeImage(dir, sessionID, src string, data []byte) (string, error) {
	target := filepath.Join(dir, sessionID)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(src))
	if ext == "" {
		ext = ".png"
	}
	dst := filepath.Join(target, uuid.NewString()+ext)
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return dst, nil
}

func init() {
	captureCmd.Flags().BoolP("new", "n", false, "Create a new session for this screenshot")
}
