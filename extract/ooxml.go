// Copyright 2025 Fred Agent Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Shared helpers for the OOXML container formats (DOCX, PPTX, XLSM): all are
// zip archives holding XML parts plus a docProps/core.xml properties part.

// openContainer opens raw bytes as an OOXML zip container and verifies that
// the marker part identifying the format is present.
func openContainer(raw []byte, markerPart string) (*zip.Reader, error) {
	reader, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("not a valid zip container: %w", err)
	}
	if !containerHasPart(reader, markerPart) {
		return nil, fmt.Errorf("missing %s part", markerPart)
	}
	return reader, nil
}

func containerHasPart(reader *zip.Reader, name string) bool {
	for _, file := range reader.File {
		if file.Name == name {
			return true
		}
	}
	return false
}

func readContainerPart(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("part %s not found", name)
}

// coreProperties mirrors docProps/core.xml. Field names resolve by XML local
// name; the dc/dcterms/cp namespaces don't collide on the fields we read.
type coreProperties struct {
	Title          string `xml:"title"`
	Subject        string `xml:"subject"`
	Creator        string `xml:"creator"`
	Keywords       string `xml:"keywords"`
	Category       string `xml:"category"`
	LastModifiedBy string `xml:"lastModifiedBy"`
	Created        string `xml:"created"`
	Modified       string `xml:"modified"`
}

// readCoreProperties parses docProps/core.xml if present.
// A missing or malformed properties part yields empty properties, not an
// error; core properties are optional in the wild.
func readCoreProperties(reader *zip.Reader) coreProperties {
	var props coreProperties
	data, err := readContainerPart(reader, "docProps/core.xml")
	if err != nil {
		return props
	}
	_ = xml.Unmarshal(data, &props)
	return props
}

// addCoreProperties copies the non-empty core properties into metadata.
func addCoreProperties(metadata map[string]string, props coreProperties) {
	set := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" {
			metadata[key] = value
		}
	}
	set("title", props.Title)
	set("subject", props.Subject)
	set("author", props.Creator)
	set("keywords", props.Keywords)
	set("category", props.Category)
	set("last_modified_by", props.LastModifiedBy)
	set("created", props.Created)
	set("modified", props.Modified)
}
