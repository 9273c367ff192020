// Copyright 2024 The alsoft Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bindgen

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/qiniu/x/log"
)

// astNode is the subset of clang's -ast-dump=json output bindgen reads.
type astNode struct {
	ID             string          `json:"id"`
	Kind           string          `json:"kind"`
	Loc            *astLoc         `json:"loc"`
	Range          *astRange       `json:"range"`
	Name           string          `json:"name"`
	Type           *astType        `json:"type"`
	IsImplicit     bool            `json:"isImplicit"`
	Variadic       bool            `json:"variadic"`
	Value          json.RawMessage `json:"value"`
	Opcode         string          `json:"opcode"`
	ReferencedDecl *astNode        `json:"referencedDecl"`
	OwnedTagDecl   *astNode        `json:"ownedTagDecl"`
	Decl           *astNode        `json:"decl"`
	Inner          []*astNode      `json:"inner"`
}

type astType struct {
	QualType string `json:"qualType"`
}

type astLoc struct {
	File         string  `json:"file"`
	SpellingLoc  *astLoc `json:"spellingLoc"`
	ExpansionLoc *astLoc `json:"expansionLoc"`
}

type astRange struct {
	Begin astLoc `json:"begin"`
	End   astLoc `json:"end"`
}

// locTracker recovers the file of every node. clang writes "file" only
// when it differs from the previous location written, so locations are
// replayed in the order they appear in the dump.
type locTracker struct {
	file string
}

func (t *locTracker) loc(l *astLoc) {
	if l == nil {
		return
	}
	if l.SpellingLoc != nil || l.ExpansionLoc != nil {
		t.loc(l.SpellingLoc)
		t.loc(l.ExpansionLoc)
		return
	}
	if l.File != "" {
		t.file = l.File
	}
}

// visit consumes the locations of n itself and returns the file its
// declaration is attributed to.
func (t *locTracker) visit(n *astNode) string {
	t.loc(n.Loc)
	file := t.file
	if n.Range != nil {
		t.loc(&n.Range.Begin)
		t.loc(&n.Range.End)
	}
	return file
}

// skip consumes the locations of everything below n.
func (t *locTracker) skip(n *astNode) {
	for _, c := range n.Inner {
		t.visit(c)
		t.skip(c)
	}
}

func (u *unit) scanAST(data []byte) error {
	var root astNode
	if err := json.Unmarshal(data, &root); err != nil {
		return errors.Wrap(err, "decode clang AST")
	}
	if root.Kind != "TranslationUnitDecl" {
		return errors.Errorf("unexpected clang AST root %q", root.Kind)
	}

	var t locTracker
	// enumerators of the anonymous enum awaiting its typedef
	var pendingEnum *astNode
	var pending []*constDecl
	for _, n := range root.Inner {
		file := t.visit(n)
		t.skip(n)
		if n.IsImplicit || !u.inHeaders(file) {
			pendingEnum, pending = nil, nil
			continue
		}
		switch n.Kind {
		case "TypedefDecl":
			if pendingEnum != nil && (refersTo(n, pendingEnum.ID) || anonEnum(n)) {
				u.typedef(n)
				for _, c := range pending {
					c.typ = u.typeGo[n.Name]
				}
				pendingEnum, pending = nil, nil
				continue
			}
			u.typedef(n)
		case "EnumDecl":
			consts := u.enum(n)
			if n.Name == "" {
				pendingEnum, pending = n, consts
				continue
			}
		case "FunctionDecl":
			u.function(n)
		}
		pendingEnum, pending = nil, nil
	}
	return nil
}

// refersTo reports whether the type of typedef n names the tag decl id.
func refersTo(n *astNode, id string) bool {
	for _, c := range n.Inner {
		if c.OwnedTagDecl != nil && c.OwnedTagDecl.ID == id || c.Decl != nil && c.Decl.ID == id {
			return true
		}
		if refersTo(c, id) {
			return true
		}
	}
	return false
}

// anonEnum reports whether typedef n names an unnamed enum, for dumps
// that do not link the typedef to its tag decl.
func anonEnum(n *astNode) bool {
	return n.Type != nil && strings.HasPrefix(n.Type.QualType, "enum (")
}

func (u *unit) typedef(n *astNode) {
	if n.Type == nil {
		return
	}
	qt := strings.TrimSpace(n.Type.QualType)
	if qt == "void" || u.voidTypes[qt] {
		u.voidTypes[n.Name] = true
	}
	u.addType(n.Name)
}

func (u *unit) enum(n *astNode) []*constDecl {
	var consts []*constDecl
	next := int64(0)
	for _, c := range n.Inner {
		if c.Kind != "EnumConstantDecl" {
			continue
		}
		v := next
		if len(c.Inner) > 0 {
			x, ok := evalExpr(c.Inner[0], u.ints)
			if !ok {
				log.Warnf("bindgen: cannot evaluate enumerator %s", c.Name)
				return consts
			}
			v = x
		}
		next = v + 1
		u.ints[c.Name] = v

		name := c.Name
		if renamed, ok := u.cb.EnumVariantName(n.Name, c.Name, v); ok {
			name = renamed
		}
		cd := &constDecl{name: name, kind: enumConst, intVal: v}
		u.addConst(cd)
		if cd.name != "" {
			consts = append(consts, cd)
		}
	}
	return consts
}

// evalExpr folds the initializer of an enumerator.
func evalExpr(n *astNode, ints map[string]int64) (int64, bool) {
	if len(n.Value) > 0 {
		var s string
		if err := json.Unmarshal(n.Value, &s); err == nil {
			if v, err := strconv.ParseInt(s, 10, 64); err == nil {
				return v, true
			}
			if v, err := strconv.ParseUint(s, 10, 64); err == nil {
				return int64(v), true
			}
		}
		var num int64
		if err := json.Unmarshal(n.Value, &num); err == nil {
			return num, true
		}
	}
	switch n.Kind {
	case "DeclRefExpr":
		if n.ReferencedDecl != nil {
			v, ok := ints[n.ReferencedDecl.Name]
			return v, ok
		}
	case "UnaryOperator":
		if len(n.Inner) == 0 {
			return 0, false
		}
		v, ok := evalExpr(n.Inner[0], ints)
		if !ok {
			return 0, false
		}
		switch n.Opcode {
		case "-":
			return -v, true
		case "+":
			return v, true
		case "~":
			return ^v, true
		}
	case "ConstantExpr", "ImplicitCastExpr", "ParenExpr", "CStyleCastExpr":
		if len(n.Inner) > 0 {
			return evalExpr(n.Inner[0], ints)
		}
	}
	return 0, false
}

func (u *unit) function(n *astNode) {
	if n.Type == nil || n.Variadic || strings.Contains(n.Type.QualType, "...") {
		log.Debugf("bindgen: skipping variadic %s", n.Name)
		return
	}
	qt := n.Type.QualType
	i := strings.IndexByte(qt, '(')
	if i < 0 {
		return
	}
	ret, ok := u.goType(qt[:i])
	if !ok {
		log.Debugf("bindgen: skipping %s: return type %q", n.Name, qt[:i])
		return
	}

	var params []param
	for _, p := range n.Inner {
		if p.Kind != "ParmVarDecl" || p.Type == nil {
			continue
		}
		ct := p.Type.QualType
		if strings.Contains(ct, "(*)") {
			log.Debugf("bindgen: skipping %s: function pointer parameter", n.Name)
			return
		}
		if j := strings.IndexByte(ct, '['); j >= 0 {
			ct = ct[:j] + "*"
		}
		gt, ok := u.goType(ct)
		if !ok || gt == "" {
			log.Debugf("bindgen: skipping %s: parameter type %q", n.Name, p.Type.QualType)
			return
		}
		name := p.Name
		if name == "" {
			name = "p" + strconv.Itoa(len(params))
		}
		params = append(params, param{name: safeIdent(name), typ: gt})
	}

	goName := u.goName(n.Name, true)
	if goName == "" {
		return
	}
	u.funcs = append(u.funcs, &funcDecl{name: goName, c: n.Name, params: params, ret: ret})
}
