package application

import (
	"fmt"
	"strings"
)

const (
	titleWelcome     = "Welcome"
	titleGoodbye     = "Goodbye"
	titleTryAgain    = "Try again"
	titleOpenDoor    = "Open door"
	titleCloseDoor   = "Close door"
	titleOpenDoors   = "Open doors"
	titleCloseDoors  = "Close doors"
	titleCheckStatus = "Check door status"
	onlyCloseRefusal = "Sorry, I can only close the door"
	leftOrRight      = " left or right"
	moveHint         = "close the left or right door"
	checkHint        = "check the state of your garage door by asking what's up"
	stateHint        = "check the state of your garage door by asking if the left or right door is open"
)

// messages holds the usage hints, which depend on the configuration and on
// how many doors the account reported for this request.
type messages struct {
	move  string
	check string
	state string
}

func newMessages(onlyClose bool, doorCount int) messages {
	m := messages{
		move:  moveHint,
		check: checkHint,
		state: stateHint,
	}
	if !onlyClose {
		m.move = "open or " + m.move
	}
	if doorCount == 1 {
		m.move = strings.Replace(m.move, leftOrRight, "", 1)
		m.state = strings.Replace(m.state, leftOrRight, "", 1)
		m.check = m.state
	}
	return m
}

func (m messages) welcome() string {
	return fmt.Sprintf("You can %s. You can also %s.", m.move, m.check)
}

func (m messages) moveFailure() (string, string) {
	return fmt.Sprintf("I didn't understand that. You can say %s.", m.move),
		fmt.Sprintf("Ask me to %s.", m.move)
}

func (m messages) stateFailure() (string, string) {
	return fmt.Sprintf("I didn't understand that. You can %s.", m.state),
		fmt.Sprintf("Ask me to %s.", m.state)
}
