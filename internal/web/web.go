// Package web holds the embedded landing page template and its static assets.
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// IndexTemplate is the name of the landing page template
const IndexTemplate = "index.html"

// Templates parses the embedded page templates
func Templates() (*template.Template, error) {
	return template.New("").ParseFS(templateFS, "templates/*.html")
}

// Static returns the embedded assets rooted at the static directory
func Static() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// the directory is embedded at build time
		panic(err)
	}
	return http.FS(sub)
}

// Step is one entry of the how-to section
type Step struct {
	Number      int
	Title       string
	Description string
}

// Feature is one card of the about section
type Feature struct {
	Title       string
	Description string
}

// NavItem is one navbar link
type NavItem struct {
	ID     string
	Label  string
	Active bool
}

// Page is the data rendered into the landing page
type Page struct {
	Nav        []NavItem
	MaxSizeMB  int64
	Steps      []Step
	Features   []Feature
	Year       int
	UploadHint string
}

// Steps lists the how-to section in order
var Steps = []Step{
	{1, "Upload", "Upload any suspicious image you want to analyze. We support JPG, PNG, and other common formats."},
	{2, "Analyze", "Our AI algorithm examines the image for telltale signs of manipulation that are invisible to the human eye."},
	{3, "Review", "The system identifies potential anomalies and highlights areas that may have been artificially generated or altered."},
	{4, "Verify", "Get the verdict on the authenticity of the image in a few seconds."},
}

// Features lists the about section cards
var Features = []Feature{
	{"What are Deepfakes?", "Deepfakes are AI-generated or manipulated media where a person's likeness is replaced with someone else's. Created using deep learning technology, they can produce realistic but entirely fabricated images, videos, or audio."},
	{"Why Detection Matters", "As deepfake technology advances, distinguishing real from fake becomes increasingly difficult. This poses serious threats to information integrity, personal reputation, and even political stability and national security."},
	{"Our Technology", "We use neural networks and computer vision techniques to analyze images at the pixel level, identifying inconsistencies and artifacts that are typical signatures of deepfake manipulation."},
	{"Stay Protected", "Being able to verify the authenticity of visual media is crucial in today's digital landscape. Our tool helps you make informed decisions about the content you consume and share online."},
}
