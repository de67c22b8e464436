package cli

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/cyberlab/internal/client"
	"github.com/ppiankov/cyberlab/internal/labs"
	"github.com/ppiankov/cyberlab/internal/model"
)

var (
	classifyMode        string
	classifyCredentials bool
	classifyFile        string
	classifySize        int64
	classifyMIME        string
	classifyPayload     string
	classifyDelay       bool
	classifyRemote      string
	classifyFormat      string
)

func init() {
	rootCmd.AddCommand(classifyCmd)
	classifyCmd.Flags().StringVarP(&classifyMode, "mode", "m", "", "Lab mode (default: the lab's first mode)")
	classifyCmd.Flags().BoolVar(&classifyCredentials, "credentials", false, "Send cookies with the cross-origin request (cors lab)")
	classifyCmd.Flags().StringVar(&classifyFile, "file", "", "File name to upload (upload lab)")
	classifyCmd.Flags().Int64Var(&classifySize, "size", 24*1024, "Declared file size in bytes (upload lab)")
	classifyCmd.Flags().StringVar(&classifyMIME, "mime", "", "Declared MIME type (default: from the file extension)")
	classifyCmd.Flags().StringVarP(&classifyPayload, "payload", "p", "", "Submit a catalog payload by name instead of an input")
	classifyCmd.Flags().BoolVar(&classifyDelay, "delay", false, "Wait the lab's simulated latency before the verdict")
	classifyCmd.Flags().StringVar(&classifyRemote, "remote", "", "Classify on a running server over gRPC (host:port)")
	classifyCmd.Flags().StringVarP(&classifyFormat, "format", "f", "text", "Output format (text|json)")
}

var classifyCmd = &cobra.Command{
	Use:   "classify <lab> [input]",
	Short: "Submit a payload to a lab and show the simulated outcome",
	Long: "Classifies one submission against a lab in the chosen mode.\n" +
		"The verdict is canned: nothing is rendered, queried, executed or fetched.\n\n" +
		"Examples:\n" +
		"  cyberlab classify sqli --mode union \"' UNION SELECT 1,username,password,role FROM users--\"\n" +
		"  cyberlab classify cors --mode wildcard --credentials https://evil.example\n" +
		"  cyberlab classify upload --mode basic --file shell.php.jpg\n" +
		"  cyberlab classify xss --payload \"Image onerror\"",
	Args: cobra.RangeArgs(1, 2),
	RunE: runClassify,
}

func runClassify(cmd *cobra.Command, args []string) error {
	cat, err := model.ParseCategory(args[0])
	if err != nil {
		return err
	}
	sub := model.Submission{
		Category:    cat,
		Mode:        model.Mode(classifyMode),
		Credentials: classifyCredentials,
	}
	if len(args) == 2 {
		sub.Input = args[1]
	}
	if classifyFile != "" {
		sub.File = fileInfo(classifyFile, classifySize, classifyMIME)
	}

	var res model.Result
	if classifyRemote != "" {
		if classifyPayload != "" {
			return fmt.Errorf("--payload is resolved locally and cannot be combined with --remote")
		}
		err = withClient(cmd.Context(), classifyRemote, func(ctx context.Context, c *client.Client) error {
			res, err = c.Classify(ctx, sub)
			return err
		})
	} else {
		res, err = classifyLocal(cmd.Context(), sub)
	}
	if err != nil {
		return err
	}

	if classifyFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	printResult(cmd.OutOrStdout(), res)
	return nil
}

func classifyLocal(ctx context.Context, sub model.Submission) (model.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	env, err := openEnv(envOptions{withAudit: true})
	if err != nil {
		return model.Result{}, err
	}
	defer env.Close()

	if classifyPayload != "" {
		e, ok := env.svc.Catalog().Find(sub.Category, classifyPayload)
		if !ok {
			return model.Result{}, fmt.Errorf("no %s payload named %q", sub.Category, classifyPayload)
		}
		mode := sub.Mode
		sub = e.Submission(sub.Category)
		if mode != "" {
			sub.Mode = mode
		}
	}

	if !classifyDelay {
		return env.svc.Classify(ctx, labs.SourceCLI, "", sub)
	}

	// The delayed path goes through a throwaway session, the same way the
	// interactive labs do.
	sess, err := env.svc.Sessions().Create(sub.Category, sub.Mode)
	if err != nil {
		return model.Result{}, err
	}
	defer env.svc.Sessions().Delete(sess.ID())
	sess.SetInput(sub.Input)
	sess.SetCredentials(sub.Credentials)
	sess.SetFile(sub.File)
	return env.svc.Submit(ctx, sess.ID())
}

// fileInfo builds upload metadata the way a browser would report it.
func fileInfo(name string, size int64, mt string) *model.FileInfo {
	if mt == "" {
		mt = mime.TypeByExtension(filepath.Ext(name))
	}
	if mt == "" {
		mt = "application/octet-stream"
	}
	return &model.FileInfo{Name: name, Size: size, MIME: mt}
}
