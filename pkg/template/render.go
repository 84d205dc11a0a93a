/*
Copyright 2023 The Qovery Engine Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package template stages terraform and chart template trees into the
// workspace, rendering .tmpl files with the cluster or service context.
package template

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

const renderSuffix = ".tmpl"

// funcs are the domain helpers available on top of the sprig set.
var funcs = template.FuncMap{
	"terraformStringList": terraformStringList,
}

// terraformStringList renders a Go string slice as a terraform list
// literal, for templates that inline values instead of reading var files.
func terraformStringList(items []string) string {
	quoted := make([]string, 0, len(items))
	for _, item := range items {
		quoted = append(quoted, fmt.Sprintf("%q", item))
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// FuncMap returns the sprig function map extended with the domain helpers.
func FuncMap() template.FuncMap {
	funcMap := sprig.TxtFuncMap()
	for name, f := range funcs {
		funcMap[name] = f
	}
	return funcMap
}

// Render executes one template body against data.
func Render(name, body string, data interface{}) ([]byte, error) {
	tmpl, err := template.New(name).Funcs(FuncMap()).Option("missingkey=error").Parse(body)
	if err != nil {
		return nil, fmt.Errorf("cannot parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("cannot render template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// StageTree copies src recursively into dst. Files ending in .tmpl are
// rendered against data and staged without the suffix; everything else is
// copied verbatim.
func StageTree(src, dst string, data interface{}) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if strings.HasSuffix(path, renderSuffix) {
			target = strings.TrimSuffix(target, renderSuffix)
			if content, err = Render(rel, string(content), data); err != nil {
				return err
			}
		}
		return os.WriteFile(target, content, info.Mode().Perm())
	})
}
