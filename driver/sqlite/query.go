package sqlite

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokenIdent tokenKind = iota
	tokenMarker
	tokenPunct
	tokenOther
)

type token struct {
	kind tokenKind
	text string
}

func (t token) is(keyword string) bool {
	return t.kind == tokenIdent && strings.EqualFold(t.text, keyword)
}

// param is a bind marker of a query in submission order.
type param struct {
	name  string
	named bool
}

func tokenize(query string) []token {
	tokens := make([]token, 0)
	runes := []rune(query)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			i += 2
			for i+1 < len(runes) && (runes[i] != '*' || runes[i+1] != '/') {
				i++
			}
			i += 2
		case r == '\'':
			end := closing(runes, i, '\'')
			tokens = append(tokens, token{kind: tokenOther, text: string(runes[i:end])})
			i = end
		case r == '"' || r == '`':
			end := closing(runes, i, r)
			tokens = append(tokens, token{kind: tokenIdent, text: string(runes[i+1 : max(end-1, i+1)])})
			i = end
		case r == '[':
			end := closing(runes, i, ']')
			tokens = append(tokens, token{kind: tokenIdent, text: string(runes[i+1 : max(end-1, i+1)])})
			i = end
		case r == '?':
			j := i + 1
			for j < len(runes) && unicode.IsDigit(runes[j]) {
				j++
			}
			tokens = append(tokens, token{kind: tokenMarker, text: string(runes[i:j])})
			i = j
		case (r == ':' || r == '@' || r == '$') && i+1 < len(runes) && isIdentRune(runes[i+1]):
			j := i + 1
			for j < len(runes) && isIdentRune(runes[j]) {
				j++
			}
			tokens = append(tokens, token{kind: tokenMarker, text: string(runes[i:j])})
			i = j
		case isIdentRune(r) && !unicode.IsDigit(r):
			j := i
			for j < len(runes) && (isIdentRune(runes[j]) || runes[j] == '.') {
				j++
			}
			tokens = append(tokens, token{kind: tokenIdent, text: string(runes[i:j])})
			i = j
		case unicode.IsDigit(r):
			j := i
			for j < len(runes) && (unicode.IsDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			tokens = append(tokens, token{kind: tokenOther, text: string(runes[i:j])})
			i = j
		default:
			j := i + 1
			if j < len(runes) {
				switch string(runes[i : j+1]) {
				case "<=", ">=", "!=", "<>", "==", "||":
					j++
				}
			}
			tokens = append(tokens, token{kind: tokenPunct, text: string(runes[i:j])})
			i = j
		}
	}
	return tokens
}

// closing returns the index after the quote closing the one at start. Doubled quotes are escapes.
func closing(runes []rune, start int, quote rune) int {
	for i := start + 1; i < len(runes); i++ {
		if runes[i] != quote {
			continue
		}
		if i+1 < len(runes) && runes[i+1] == quote && quote != ']' {
			i++
			continue
		}
		return i + 1
	}
	return len(runes)
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// params names every bind marker. Positional markers take the name of the column
// they are compared with or inserted into.
func params(tokens []token) []param {
	insertColumns := insertMarkerColumns(tokens)

	result := make([]param, 0)
	seen := make(map[string]bool)
	position := 0
	for i, t := range tokens {
		if t.kind != tokenMarker {
			continue
		}
		position++

		if t.text[0] != '?' {
			name := t.text[1:]
			if !seen[name] {
				seen[name] = true
				result = append(result, param{name: name, named: true})
			}
			continue
		}

		name, ok := insertColumns[i]
		if !ok {
			name = comparedColumn(tokens, i)
		}
		if name == "" {
			name = fmt.Sprintf("arg%d", position)
		}
		result = append(result, param{name: name})
	}
	return result
}

// insertMarkerColumns maps marker token indexes of INSERT ... (columns) VALUES (...) to column names.
func insertMarkerColumns(tokens []token) map[int]string {
	result := make(map[int]string)
	if len(tokens) == 0 || !(tokens[0].is("insert") || tokens[0].is("replace")) {
		return result
	}

	i := 0
	for i < len(tokens) && !tokens[i].is("into") {
		i++
	}
	i += 2
	if i >= len(tokens) || tokens[i].text != "(" {
		return result
	}
	columns := make([]string, 0)
	for i++; i < len(tokens) && tokens[i].text != ")"; i++ {
		if tokens[i].kind == tokenIdent {
			columns = append(columns, unqualified(tokens[i].text))
		}
	}
	for i < len(tokens) && !tokens[i].is("values") {
		i++
	}
	if i+1 >= len(tokens) || tokens[i+1].text != "(" {
		return result
	}

	item, size, marker, depth := 0, 0, -1, 0
	flush := func() {
		if size == 1 && marker >= 0 && item < len(columns) {
			result[marker] = columns[item]
		}
	}
	for j := i + 2; j < len(tokens); j++ {
		t := tokens[j]
		if t.kind == tokenPunct {
			switch t.text {
			case "(":
				depth++
			case ")":
				if depth == 0 {
					flush()
					return result
				}
				depth--
			case ",":
				if depth == 0 {
					flush()
					item, size, marker = item+1, 0, -1
					continue
				}
			}
		}
		size++
		if t.kind == tokenMarker {
			marker = j
		}
	}
	return result
}

func comparedColumn(tokens []token, i int) string {
	if i == 0 {
		return ""
	}
	prev := tokens[i-1]
	switch {
	case prev.kind == tokenPunct && isComparison(prev.text), prev.is("like"), prev.is("is"):
		if i >= 2 && tokens[i-2].kind == tokenIdent {
			return unqualified(tokens[i-2].text)
		}
	case prev.is("limit"):
		return "limit"
	case prev.is("offset"):
		return "offset"
	case prev.kind == tokenPunct && (prev.text == "(" || prev.text == ","):
		depth := 0
		for j := i - 1; j >= 0; j-- {
			switch tokens[j].text {
			case ")":
				depth++
			case "(":
				if depth > 0 {
					depth--
					continue
				}
				if j >= 2 && tokens[j-1].is("in") && tokens[j-2].kind == tokenIdent {
					return unqualified(tokens[j-2].text)
				}
				return ""
			}
		}
	}
	return ""
}

func isComparison(op string) bool {
	switch op {
	case "=", "==", "<", ">", "<=", ">=", "!=", "<>":
		return true
	default:
		return false
	}
}

func unqualified(name string) string {
	i := strings.LastIndexByte(name, '.')
	return name[i+1:]
}

// table returns the first table the query reads or writes.
func table(tokens []token) string {
	for i := 0; i+1 < len(tokens); i++ {
		t := tokens[i]
		if (t.is("into") || t.is("update") || t.is("from") || t.is("table")) && tokens[i+1].kind == tokenIdent {
			next := tokens[i+1]
			if next.is("if") || next.is("select") {
				continue
			}
			return unqualified(next.text)
		}
	}
	return ""
}

// describesTable reports statements whose table must already exist.
// Schema statements and common table expressions name tables that are not in the schema yet.
func describesTable(tokens []token) bool {
	if len(tokens) == 0 {
		return false
	}
	for _, keyword := range []string{"create", "drop", "alter", "pragma", "explain"} {
		if tokens[0].is(keyword) {
			return false
		}
	}
	for _, t := range tokens {
		if t.is("with") || (t.kind == tokenIdent && strings.HasPrefix(strings.ToLower(t.text), "pragma_")) {
			return false
		}
	}
	return true
}

// returnsRows reports statements producing a result set.
func returnsRows(tokens []token) bool {
	if len(tokens) == 0 {
		return false
	}
	first := tokens[0]
	if first.kind == tokenPunct && first.text == "(" && len(tokens) > 1 {
		first = tokens[1]
	}
	for _, keyword := range []string{"select", "with", "values", "pragma", "explain"} {
		if first.is(keyword) {
			return true
		}
	}
	for _, t := range tokens {
		if t.is("returning") {
			return true
		}
	}
	return false
}

// pageable reports queries that can be wrapped into a paging subquery.
func pageable(tokens []token) bool {
	if len(tokens) == 0 {
		return false
	}
	return tokens[0].is("select") || tokens[0].is("with") || tokens[0].is("values")
}

func pageQuery(query string, limit int, offset uint64) string {
	query = strings.TrimRight(strings.TrimSpace(query), ";")
	return fmt.Sprintf("SELECT * FROM (%s) LIMIT %d OFFSET %d", query, limit, offset)
}
