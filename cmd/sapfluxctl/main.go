// Command sapfluxctl is a thin CLI adjunct to sapfluxd: it submits one
// transaction (a manifest, a batch of files, or both) and prints the
// resulting receipt, exiting non-zero on a REJECTED outcome. Out of the
// service's core scope per spec §1/§6, but a second real consumer of the
// receipt model besides the HTTP handler.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sapfluxctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	server := fs.String("server", "http://localhost:8080", "sapfluxd base URL")
	username := fs.String("user", "", "submitting username")
	message := fs.String("message", "", "transaction message")
	manifestPath := fs.String("manifest", "", "path to a metadata manifest file")
	dryRun := fs.Bool("dry-run", false, "submit as a dry run")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	files := fs.Args()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if *username != "" {
		mw.WriteField("username", *username)
	}
	mw.WriteField("message", *message)
	if *dryRun {
		mw.WriteField("dry_run", "true")
	}
	if *manifestPath != "" {
		text, err := os.ReadFile(*manifestPath)
		if err != nil {
			fmt.Fprintln(stderr, "sapfluxctl: read manifest:", err)
			return 1
		}
		mw.WriteField("metadata_manifest", string(text))
	}
	for _, path := range files {
		if err := attachFile(mw, path); err != nil {
			fmt.Fprintln(stderr, "sapfluxctl: attach file:", err)
			return 1
		}
	}
	if err := mw.Close(); err != nil {
		fmt.Fprintln(stderr, "sapfluxctl: build request body:", err)
		return 1
	}

	req, err := http.NewRequest(http.MethodPost, *server+"/transactions", body)
	if err != nil {
		fmt.Fprintln(stderr, "sapfluxctl: build request:", err)
		return 1
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintln(stderr, "sapfluxctl: submit:", err)
		return 1
	}
	defer resp.Body.Close()

	var receipt struct {
		Outcome string `json:"outcome"`
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintln(stderr, "sapfluxctl: read response:", err)
		return 1
	}
	if err := json.Unmarshal(raw, &receipt); err != nil {
		fmt.Fprintln(stderr, "sapfluxctl: malformed receipt:", err)
		return 1
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err == nil {
		fmt.Fprintln(stdout, pretty.String())
	} else {
		fmt.Fprintln(stdout, string(raw))
	}

	if receipt.Outcome != "ACCEPTED" {
		return 1
	}
	return 0
}

func attachFile(mw *multipart.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	part, err := mw.CreateFormFile("files[]", filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}
