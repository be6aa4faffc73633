/*
Copyright (C) 2026  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package client

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	packrat "github.com/launix-de/go-packrat/v2"
)

// replCommand is the parsed shape of one REPL line: get KEY | set KEY VALUE
// | rm KEY.
type replCommand struct {
	verb  string
	key   string
	value string
}

// replParser builds the packrat grammar once: three alternatives (set KEY
// VALUE, get KEY, rm KEY), composing AndParser/OrParser trees over a
// packrat.Scanner.
var replParser = buildReplParser()

func buildReplParser() packrat.Parser {
	word := packrat.NewRegexParser(`[^\s]+`, false, true)
	get := packrat.NewAndParser(packrat.NewAtomParser("get", false, true), word)
	rm := packrat.NewAndParser(packrat.NewAtomParser("rm", false, true), word)
	set := packrat.NewAndParser(packrat.NewAtomParser("set", false, true), word, word)
	return packrat.NewOrParser(set, get, rm)
}

func parseReplLine(line string) (replCommand, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return replCommand{}, nil
	}
	scanner := packrat.NewScanner(line, packrat.SkipWhitespaceAndCommentsRegex)
	node, err := packrat.Parse(replParser, scanner)
	if err != nil {
		return replCommand{}, fmt.Errorf("parse %q: %w", line, err)
	}

	// node.Children[0] is whichever branch of the OrParser matched; its own
	// Children are the AndParser's tokens: verb, key[, value].
	branch := node.Children[0]
	verb := branch.Children[0].Matched
	cmd := replCommand{verb: verb, key: branch.Children[1].Matched}
	if len(branch.Children) > 2 {
		cmd.value = branch.Children[2].Matched
	}
	return cmd, nil
}

// RunREPL drives an interactive session against c using chzyer/readline for
// line editing/history, the same library the wider example pack reaches for
// an interactive shell.
func RunREPL(c *Client) error {
	rl, err := readline.New("kvs> ")
	if err != nil {
		return fmt.Errorf("start readline: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read line: %w", err)
		}

		cmd, err := parseReplLine(line)
		if err != nil {
			fmt.Println(err)
			continue
		}
		if cmd.verb == "" {
			continue
		}

		switch cmd.verb {
		case "get":
			value, found, err := c.Get(cmd.key)
			if err != nil {
				fmt.Println(err)
			} else if !found {
				fmt.Println("Key not found")
			} else {
				fmt.Println(value)
			}
		case "set":
			if err := c.Set(cmd.key, cmd.value); err != nil {
				fmt.Println(err)
			}
		case "rm":
			if err := c.Remove(cmd.key); err != nil {
				fmt.Println(err)
			}
		}
	}
}
