package classify

import (
	"fmt"
	"path"
	"strings"

	"github.com/ppiankov/cyberlab/internal/model"
)

// executableExts are extensions a typical web server hands to an interpreter.
var executableExts = map[string]bool{
	"php": true, "php3": true, "php4": true, "php5": true, "phtml": true, "phar": true,
	"jsp": true, "jspx": true, "asp": true, "aspx": true,
	"cgi": true, "pl": true, "py": true, "sh": true, "exe": true,
}

// allowedUploads maps whitelisted extensions to their expected MIME type.
var allowedUploads = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"pdf":  "application/pdf",
}

const bypassFlag = "possible bypass attempt"

func classifyUpload(sub model.Submission, env Env) model.Result {
	if sub.File == nil || strings.TrimSpace(sub.File.Name) == "" {
		return model.Result{
			Kind:     model.KindNoFile,
			Severity: model.SevInfo,
			Message:  "Select a file to upload.",
		}
	}

	f := *sub.File
	name := strings.ToLower(strings.TrimSpace(f.Name))
	ext := strings.TrimPrefix(path.Ext(name), ".")
	double := hasDoubleExtension(name)

	report := &model.UploadReport{File: f, Extension: ext}
	res := model.Result{Data: &model.Data{Upload: report}}

	switch sub.Mode {
	case model.ModeNone:
		if executableExts[ext] {
			return stored(res, model.SevCritical, "webshell",
				fmt.Sprintf("%s was stored under /uploads and the server executes .%s files. Remote code execution achieved.", f.Name, ext))
		}
		if double {
			report.Flags = append(report.Flags, bypassFlag)
			return stored(res, model.SevMedium, "uploaded",
				f.Name+" uploaded without any checks; "+bypassFlag+" (double extension).")
		}
		return stored(res, model.SevInfo, "uploaded", f.Name+" uploaded without any checks.")

	case model.ModeBasic:
		if executableExts[ext] {
			return blockedUpload(res, fmt.Sprintf(".%s is on the extension blacklist.", ext))
		}
		if double {
			report.Flags = append(report.Flags, bypassFlag)
			return stored(res, model.SevMedium, "uploaded",
				f.Name+" passed the blacklist, which only checks the last extension: "+bypassFlag+". A misconfigured server may still run it as a script.")
		}
		return stored(res, model.SevInfo, "uploaded", f.Name+" passed the extension blacklist.")
	}

	// strict
	wantMIME, ok := allowedUploads[ext]
	switch {
	case !ok:
		return blockedUpload(res, fmt.Sprintf(".%s is not on the allowlist (jpg, jpeg, png, gif, pdf).", ext))
	case double:
		report.Flags = append(report.Flags, bypassFlag)
		return blockedUpload(res, "File names with more than one extension are rejected.")
	case !strings.EqualFold(f.MIME, wantMIME):
		return blockedUpload(res, fmt.Sprintf("Content-Type %q does not match .%s (expected %s).", f.MIME, ext, wantMIME))
	case env.UploadMaxBytes > 0 && f.Size > env.UploadMaxBytes:
		return blockedUpload(res, fmt.Sprintf("File is %d bytes, over the %d byte limit.", f.Size, env.UploadMaxBytes))
	}
	return stored(res, model.SevInfo, "uploaded", f.Name+" passed allowlist, MIME and size checks and was renamed on storage.")
}

// hasDoubleExtension reports whether an executable extension appears
// before the final one, e.g. shell.php.jpg.
func hasDoubleExtension(name string) bool {
	for ext := range executableExts {
		if strings.Contains(name, "."+ext+".") {
			return true
		}
	}
	return false
}

func stored(res model.Result, sev model.Severity, kind model.Kind, msg string) model.Result {
	res.Data.Upload.Stored = true
	res.Data.Upload.Path = "/uploads/" + res.Data.Upload.File.Name
	res.Kind = kind
	res.Severity = sev
	res.Message = msg
	return res
}

func blockedUpload(res model.Result, msg string) model.Result {
	res.Kind = model.KindBlocked
	res.Severity = model.SevInfo
	res.Message = msg
	return res
}
