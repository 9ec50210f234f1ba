// Copyright 2025 Zintix Labs
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

// Package catalog 提供靜態道具目錄：由一或多個 fs.FS 讀取 YAML/JSON 定義，
// 載入完成後 Freeze，之後只讀。
package catalog

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/slot666/content"
	"github.com/zintix-labs/slot666/errs"
	"github.com/zintix-labs/slot666/sdk/item"
	"github.com/zintix-labs/slot666/setting"
)

var (
	ErrDupID  = errs.NewFatal("duplicate item id")
	ErrFrozen = errs.NewWarn("can not register when catalog already frozen")
)

// Definition 單一道具的靜態定義
type Definition struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Effect      setting.EffectKind `json:"effect"`
	Magnitude   decimal.Decimal    `json:"magnitude"`
	Target      *setting.Symbol    `json:"target,omitempty"`
}

type Catalog struct {
	byID   map[string]Definition
	ids    []string // 用來穩定排序
	files  map[string]struct{}
	config *multiFS
	frozen bool
}

// New 以一或多個 flat fs.FS 建立目錄；尚未載入任何檔案。
func New(cfg ...fs.FS) (*Catalog, error) {
	multFS, err := newMultiFS(cfg...)
	if err != nil {
		return nil, errs.Wrap(err, "can not create catalog")
	}
	return &Catalog{
		byID:   map[string]Definition{},
		ids:    make([]string, 0, 16),
		files:  map[string]struct{}{},
		config: multFS,
	}, nil
}

// Default 回傳載入內建 items.yaml 並 Freeze 的目錄
func Default() (*Catalog, error) {
	c, err := New(content.FS)
	if err != nil {
		return nil, err
	}
	if err := c.Load(content.ItemsFile); err != nil {
		return nil, err
	}
	c.Freeze()
	return c, nil
}

// Load 讀取指定檔名的道具檔並註冊其中所有定義
func (c *Catalog) Load(names ...string) error {
	if c.frozen {
		return ErrFrozen
	}
	for _, name := range names {
		if err := validFileName(name); err != nil {
			return err
		}
		if _, ok := c.files[name]; ok {
			return errs.NewFatal(fmt.Sprintf("items file already loaded: %s", name))
		}
		src, ok := c.config.GetFS(name)
		if !ok {
			return errs.NewFatal(fmt.Sprintf("items file not found: %s", name))
		}
		raw, err := fs.ReadFile(src, name)
		if err != nil {
			return errs.Wrap(err, "catalog read file error")
		}
		is, err := parseItemsByExt(name, raw)
		if err != nil {
			return errs.WrapWithExtra(err, "catalog parse file error", name)
		}
		defs := make([]Definition, 0, len(is.Items))
		for _, it := range is.Items {
			defs = append(defs, fromSetting(it))
		}
		if err := c.Register(defs...); err != nil {
			return err
		}
		c.files[name] = struct{}{}
	}
	return nil
}

// Register 註冊定義；同批或既有 id 重複時整批失敗
func (c *Catalog) Register(defs ...Definition) error {
	if c.frozen {
		return ErrFrozen
	}
	seen := map[string]struct{}{}
	for _, d := range defs {
		if strings.TrimSpace(d.ID) == "" {
			return errs.NewFatal("item id required")
		}
		if _, ok := c.byID[d.ID]; ok {
			return ErrDupID
		}
		if _, ok := seen[d.ID]; ok {
			return ErrDupID
		}
		if _, err := item.Resolve([]item.OwnedItem{d.own(1)}); err != nil {
			return errs.Inconsistent("item %s: %v", d.ID, err)
		}
		seen[d.ID] = struct{}{}
	}
	for _, d := range defs {
		c.byID[d.ID] = d
		c.ids = append(c.ids, d.ID)
	}
	sort.Strings(c.ids)
	return nil
}

// Definition 依 id 查詢
func (c *Catalog) Definition(id string) (Definition, bool) {
	d, ok := c.byID[id]
	return d, ok
}

// Own 把 (id, qty) 轉成引擎可用的 OwnedItem
func (c *Catalog) Own(id string, qty int) (item.OwnedItem, error) {
	d, ok := c.byID[id]
	if !ok {
		return item.OwnedItem{}, errs.Kindf(errs.NotFound, "item %q not in catalog", id)
	}
	if qty < 0 {
		return item.OwnedItem{}, errs.Malformed("item %s: negative quantity %d", id, qty)
	}
	return d.own(qty), nil
}

func (c *Catalog) IDs() []string {
	if len(c.ids) == 0 {
		return nil
	}
	return append([]string(nil), c.ids...)
}

// All 依 id 排序回傳所有定義
func (c *Catalog) All() []Definition {
	out := make([]Definition, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.byID[id])
	}
	return out
}

func (c *Catalog) Len() int {
	return len(c.ids)
}

func (c *Catalog) Freeze() {
	c.frozen = true
}

func (c *Catalog) IsFrozen() bool {
	return c.frozen
}

func (d Definition) own(qty int) item.OwnedItem {
	o := item.OwnedItem{
		ItemID:    d.ID,
		Quantity:  qty,
		Effect:    d.Effect,
		Magnitude: d.Magnitude,
	}
	if d.Target != nil {
		t := *d.Target
		o.Target = &t
	}
	return o
}

func fromSetting(it setting.ItemSetting) Definition {
	d := Definition{
		ID:          it.ID,
		Name:        it.Name,
		Description: it.Description,
		Effect:      it.EffectKind,
		Magnitude:   decimal.NewFromFloat(it.Magnitude),
	}
	if it.TargetSym != nil {
		t := *it.TargetSym
		d.Target = &t
	}
	return d
}

func validFileName(file string) error {
	if file == "" {
		return errs.NewFatal("empty items filename")
	}
	// 1) 不能包含路徑或類似字元
	if strings.ContainsAny(file, `/\:`) {
		return errs.NewFatal(fmt.Sprintf("invalid items filename: %q (must be a basename; no / \\\\ :) ", file))
	}
	// 2) 必須以 .yaml/.yml/.json 結尾（大小寫不敏感）
	if !hasConfigExt(file) {
		return errs.NewFatal(fmt.Sprintf("invalid items filename: %q (must end with .yaml, .yml, or .json)", file))
	}
	// 3) 不能以 . 開頭
	if strings.HasPrefix(file, ".") {
		return errs.NewFatal(fmt.Sprintf("invalid items filename: %q (cannot start with '.')", file))
	}
	return nil
}

func hasConfigExt(file string) bool {
	lower := strings.ToLower(file)
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") || strings.HasSuffix(lower, ".json")
}

func parseItemsByExt(filename string, raw []byte) (*setting.ItemsSetting, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return setting.GetItemsSettingByYAML(raw)
	case ".json":
		return setting.GetItemsSettingByJSON(raw)
	default:
		return nil, errs.NewFatal(fmt.Sprintf("unsupported items format: %q", filename))
	}
}

type multiFS struct {
	src   []fs.FS
	index map[string]int // name -> src index
}

func newMultiFS(src ...fs.FS) (*multiFS, error) {
	if len(src) == 0 {
		return nil, errs.NewFatal("no fs provided")
	}
	for i, s := range src {
		if s == nil {
			return nil, errs.NewFatal(fmt.Sprintf("fs[%d] is nil", i))
		}
	}

	m := &multiFS{
		src:   src,
		index: make(map[string]int, 16),
	}

	for i := 0; i < len(src); i++ {
		err := fs.WalkDir(src[i], ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				// 只接受 flat 目錄
				if path == "." {
					return nil
				}
				return errs.NewFatal(fmt.Sprintf("items FS must be flat (no subdirectories): %q", path))
			}
			if !hasConfigExt(path) {
				return nil
			}
			if prev, ok := m.index[path]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate file %q in fs[%d] and fs[%d]", path, prev, i))
			}
			m.index[path] = i
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *multiFS) GetFS(name string) (fs.FS, bool) {
	if id, ok := m.index[name]; ok {
		return m.src[id], ok
	}
	return nil, false
}
