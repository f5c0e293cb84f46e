package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys shared by the CLI and the development API. English text is
// the key itself; other languages are registered below.
const (
	MsgSubmitted     = "Submitted %d rule(s) to %s\n"
	MsgDeleted       = "Deleted %s from %s\n"
	MsgStaged        = "Staged %d rule(s) for %s\n"
	MsgDryRun        = "Dry run: nothing was sent\n"
	MsgNoRules       = "No active %s rules\n"
	MsgRuleCount     = "%d active rule(s)\n"
	MsgValid         = "%s is valid\n"
	MsgInvalidRule   = "rule %d: %s\n"
	MsgNoChange      = "Active list unchanged\n"
	MsgAdded         = "Added %d rule(s)"
	MsgRuleNotFound  = "rule not found"
	MsgNoRulesInBody = "request carried no rules"
)

func init() {
	de := language.German
	for key, text := range map[string]string{
		MsgSubmitted:     "%d Regel(n) an %s übermittelt\n",
		MsgDeleted:       "%s aus %s gelöscht\n",
		MsgStaged:        "%d Regel(n) für %s vorgemerkt\n",
		MsgDryRun:        "Testlauf: nichts wurde gesendet\n",
		MsgNoRules:       "Keine aktiven %s-Regeln\n",
		MsgRuleCount:     "%d aktive Regel(n)\n",
		MsgValid:         "%s ist gültig\n",
		MsgInvalidRule:   "Regel %d: %s\n",
		MsgNoChange:      "Aktive Liste unverändert\n",
		MsgAdded:         "%d Regel(n) hinzugefügt",
		MsgRuleNotFound:  "Regel nicht gefunden",
		MsgNoRulesInBody: "Anfrage enthielt keine Regeln",
	} {
		_ = message.SetString(de, key, text)
	}
}
