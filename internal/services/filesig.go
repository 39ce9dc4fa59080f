package services

import (
	"archive/zip"
	"bytes"
	"strings"
)

var (
	pdfMagic = []byte("%PDF-")
	zipMagic = []byte("PK\x03\x04")
)

// Package parts that tell Word and PowerPoint archives apart.
const (
	docxManifest = "word/document.xml"
	pptxManifest = "ppt/presentation.xml"
)

// NormalizeExtension lower-cases ext and strips a leading dot.
func NormalizeExtension(ext string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
}

// ValidateFileSignature checks that data really is the claimed file type.
func ValidateFileSignature(data []byte, ext string) error {
	switch NormalizeExtension(ext) {
	case "txt":
		return nil
	case "doc":
		return &RejectedInputError{Message: "Legacy .doc files are not supported. Please convert the document to .docx and upload it again."}
	case "pdf":
		if !bytes.HasPrefix(data, pdfMagic) {
			return &RejectedInputError{Message: "The file does not look like a valid PDF document."}
		}
		return nil
	case "docx":
		return validateOfficePackage(data, docxManifest, "Word (.docx)")
	case "pptx":
		return validateOfficePackage(data, pptxManifest, "PowerPoint (.pptx)")
	default:
		return &RejectedInputError{Message: "Unsupported file type. Allowed types: pdf, docx, pptx, txt."}
	}
}

func validateOfficePackage(data []byte, manifest, label string) error {
	if !bytes.HasPrefix(data, zipMagic) {
		return &RejectedInputError{Message: "The file does not look like a valid " + label + " document."}
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return &RejectedInputError{Message: "The " + label + " file is corrupt and cannot be opened."}
	}

	for _, f := range zr.File {
		if f.Name == manifest {
			return nil
		}
	}
	return &RejectedInputError{Message: "The file content does not match its " + label + " extension."}
}
