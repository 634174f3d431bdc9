package ebook

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"
)

type spineDoc struct {
	name   string
	markup string
}

type containerXML struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type packageXML struct {
	Manifest struct {
		Items []struct {
			ID        string `xml:"id,attr"`
			Href      string `xml:"href,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		ItemRefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

// readSpine opens an EPUB archive and returns its spine documents in reading
// order. Non-document spine entries (images, fonts) are skipped.
func readSpine(archivePath string) ([]spineDoc, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open epub: %w", err)
	}
	defer reader.Close()

	files := make(map[string]*zip.File, len(reader.File))
	for _, f := range reader.File {
		files[f.Name] = f
	}

	var container containerXML
	if err := decodeEntry(files, "META-INF/container.xml", &container); err != nil {
		return nil, err
	}
	if len(container.Rootfiles) == 0 || container.Rootfiles[0].FullPath == "" {
		return nil, fmt.Errorf("epub %s: container has no rootfile", archivePath)
	}
	opfPath := container.Rootfiles[0].FullPath

	var pkg packageXML
	if err := decodeEntry(files, opfPath, &pkg); err != nil {
		return nil, err
	}

	hrefByID := make(map[string]string, len(pkg.Manifest.Items))
	typeByID := make(map[string]string, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		hrefByID[item.ID] = item.Href
		typeByID[item.ID] = item.MediaType
	}

	opfDir := path.Dir(opfPath)
	var docs []spineDoc
	for _, ref := range pkg.Spine.ItemRefs {
		href, ok := hrefByID[ref.IDRef]
		if !ok {
			continue
		}
		if mt := typeByID[ref.IDRef]; mt != "" && !strings.Contains(mt, "html") {
			continue
		}
		name := href
		if opfDir != "." {
			name = path.Join(opfDir, href)
		}
		entry, ok := files[name]
		if !ok {
			return nil, fmt.Errorf("epub %s: spine document %s missing", archivePath, name)
		}
		markup, err := readEntry(entry)
		if err != nil {
			return nil, fmt.Errorf("read spine document %s: %w", name, err)
		}
		docs = append(docs, spineDoc{name: name, markup: markup})
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("epub %s: spine contains no documents", archivePath)
	}
	return docs, nil
}

func decodeEntry(files map[string]*zip.File, name string, dest any) error {
	entry, ok := files[name]
	if !ok {
		return fmt.Errorf("epub entry %s missing", name)
	}
	raw, err := readEntry(entry)
	if err != nil {
		return fmt.Errorf("read epub entry %s: %w", name, err)
	}
	if err := xml.Unmarshal([]byte(raw), dest); err != nil {
		return fmt.Errorf("parse epub entry %s: %w", name, err)
	}
	return nil
}

func readEntry(entry *zip.File) (string, error) {
	rc, err := entry.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
