// Copyright 2023 The nvmem Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// nvmctl inspects and edits nvmem image files.
package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/docopt/docopt-go"
	"github.com/kballard/go-shellquote"
	log "github.com/sirupsen/logrus"

	"github.com/faroukmahfoudhi/nvmem"
	"github.com/faroukmahfoudhi/nvmem/file"
)

const usage = `nvmctl - inspect and edit nvmem attribute store images.

Values are given and printed as hex strings.

Usage:
  nvmctl [-f FILE] [-s SIZE] get <id>
  nvmctl [-f FILE] [-s SIZE] set <id> <value>
  nvmctl [-f FILE] [-s SIZE] dump
  nvmctl [-f FILE] [-s SIZE] backup <dest>
  nvmctl [-f FILE] [-s SIZE] shell
  nvmctl -h | --help

Options:
  -f FILE  image file [default: nvmem.img]
  -s SIZE  total image size in bytes [default: 2048]
  -h --help  show this help
`

type opts struct {
	File   string `docopt:"-f"`
	Size   int    `docopt:"-s"`
	Get    bool   `docopt:"get"`
	Set    bool   `docopt:"set"`
	Dump   bool   `docopt:"dump"`
	Backup bool   `docopt:"backup"`
	Shell  bool   `docopt:"shell"`
	ID     string `docopt:"<id>"`
	Value  string `docopt:"<value>"`
	Dest   string `docopt:"<dest>"`
}

func init() {
	if os.Getenv("DEBUG") == "1" {
		log.SetLevel(log.DebugLevel)
	}
}

func main() {
	parsed, err := docopt.ParseDoc(usage)
	if err != nil {
		log.Fatal(err)
	}
	var conf opts
	if err := parsed.Bind(&conf); err != nil {
		log.Fatal(err)
	}

	dev, err := file.Open(conf.File)
	if err != nil {
		log.Fatal(err)
	}
	store, err := nvmem.New(dev, nvmem.WithImageSize(conf.Size))
	if err != nil {
		log.Fatal(err)
	}
	if err := store.Init(); err != nil {
		log.Fatal(err)
	}
	log.Debugf("opened image %s (%d bytes)", conf.File, conf.Size)

	defer func() {
		if err := store.Uninit(); err != nil {
			log.Fatal(err)
		}
	}()

	switch {
	case conf.Get:
		err = runGet(store, conf.ID)
	case conf.Set:
		err = runSet(store, conf.ID, conf.Value)
	case conf.Dump:
		err = runDump(store)
	case conf.Backup:
		err = dev.Snapshot(conf.Dest)
	case conf.Shell:
		err = runShell(store, dev)
	}
	if err != nil {
		log.Error(err)
	}
}

func parseID(s string) (uint8, error) {
	id, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("attribute id must be 0-255, got %q", s)
	}
	return uint8(id), nil
}

func runGet(store *nvmem.Store, idArg string) error {
	id, err := parseID(idArg)
	if err != nil {
		return err
	}
	value, err := store.GetAttribute(id)
	if err != nil {
		return err
	}
	fmt.Printf("%d: %s (%d bytes)\n", id, hex.EncodeToString(value), len(value))
	return nil
}

func runSet(store *nvmem.Store, idArg, valueArg string) error {
	id, err := parseID(idArg)
	if err != nil {
		return err
	}
	value, err := hex.DecodeString(valueArg)
	if err != nil {
		return fmt.Errorf("value must be a hex string: %w", err)
	}
	return store.SetAttribute(id, value)
}

func runDump(store *nvmem.Store) error {
	ids, err := store.Attributes()
	if err != nil {
		return err
	}
	capacity, err := store.Capacity()
	if err != nil {
		return err
	}
	used := 0
	for _, id := range ids {
		value, err := store.GetAttribute(id)
		if err != nil {
			fmt.Printf("%3d: %s\n", id, err)
			continue
		}
		fmt.Printf("%3d: %s (%d bytes)\n", id, hex.EncodeToString(value), len(value))
		used += 1 + len(value)
	}
	fmt.Printf("%d attributes, %d/%d data bytes used\n", len(ids), used, capacity)
	return nil
}

func runShell(store *nvmem.Store, dev *file.Device) error {
	fmt.Println("Type commands. 'help' for information or 'exit' to quit.")
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		words, err := shellquote.Split(line)
		if err != nil {
			fmt.Println("parse error:", err)
			continue
		}

		cmd := strings.ToLower(words[0])
		switch {
		case cmd == "exit":
			return nil
		case cmd == "help":
			fmt.Println("commands: get <id>, set <id> <hex-value>, dump, backup <dest>, exit")
			continue
		case cmd == "get" && len(words) == 2:
			err = runGet(store, words[1])
		case cmd == "set" && len(words) == 3:
			err = runSet(store, words[1], words[2])
		case cmd == "dump" && len(words) == 1:
			err = runDump(store)
		case cmd == "backup" && len(words) == 2:
			err = dev.Snapshot(words[1])
		default:
			err = fmt.Errorf("unknown command %q ('help' lists them)", line)
		}
		if err != nil {
			fmt.Println(err)
		}
	}
}
