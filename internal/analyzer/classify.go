package analyzer

import (
	"bytes"
	"path"

	"github.com/standardbeagle/phpbundle/internal/pathutil"
)

// phpExtensions mirrors the extension list the symbol extractor this is
// descended from registers itself against.
var phpExtensions = map[string]bool{
	".php": true, ".phtml": true, ".php3": true, ".php4": true, ".php5": true, ".phar": true,
}

// Classify implements §4.D step 2: files under vendor/** are vendor
// files, included verbatim and never re-analyzed for nested dependencies
// (§8 scenario 6 — "its internal new expressions do NOT produce edges" —
// which in practice means skip_ast applies to every vendor file, not just
// the composer-generated autoload shims §4.D's prose calls out by name);
// non-PHP or tag-less files are rejected outright.
func Classify(relPath string, content []byte) (isVendor, reject bool) {
	if !hasPHPExtension(relPath) {
		return false, true
	}
	if !bytes.Contains(content, []byte("<?php")) && !bytes.Contains(content, []byte("<?=")) {
		return false, true
	}
	return pathutil.MatchGlob("vendor/**", relPath), false
}

func hasPHPExtension(relPath string) bool {
	ext := path.Ext(relPath)
	return phpExtensions[ext]
}
