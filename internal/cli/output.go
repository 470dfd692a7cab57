// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"deskboard/internal/models"
)

// CLIResponse is the JSON envelope written with --format json.
type CLIResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

// OutputFormatter writes command results as text or JSON.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Success writes data. In text mode, text renders it; a nil text prints
// data with fmt.
func (f *OutputFormatter) Success(data any, text func(w io.Writer)) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	if text == nil {
		_, err := fmt.Fprintln(f.Writer, data)
		return err
	}
	text(f.Writer)
	return nil
}

func writeCategories(w io.Writer, cats []models.Category) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tICON")
	for _, c := range cats {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.Name, c.Icon)
	}
	tw.Flush()
}

func writePosts(w io.Writer, list []models.Post) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tCREATED\tNEW\tTITLE")
	for _, p := range list {
		fresh := ""
		if p.IsNew {
			fresh = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Category, p.CreatedAt.Format(time.RFC3339), fresh, p.Title)
	}
	tw.Flush()
}

func writePost(w io.Writer, p *models.Post) {
	fmt.Fprintf(w, "ID:        %s\n", p.ID)
	fmt.Fprintf(w, "Title:     %s\n", p.Title)
	fmt.Fprintf(w, "Category:  %s\n", p.Category)
	fmt.Fprintf(w, "Author:    %s (%s)\n", p.Author, p.AuthorID)
	fmt.Fprintf(w, "Tags:      %s\n", strings.Join(p.Tags, ", "))
	fmt.Fprintf(w, "Created:   %s\n", p.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Updated:   %s\n", p.UpdatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Comments:  %d  Views: %d\n", p.CommentCount, p.ViewCount)
	fmt.Fprintf(w, "\n%s\n", p.Content)
}
