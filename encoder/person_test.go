package encoder

import (
	"math/big"
	"sync/atomic"
	"time"
)

// personsConstructed counts calls to NewPerson.
var personsConstructed atomic.Int32

// Person exercises every value shape the serializer distinguishes.
type Person struct {
	DateOfBirth time.Time `json:"dateOfBirth"`
	Set         *Set      `json:"set"`
	Map         *Map      `json:"map"`
	N           int       `json:"n"`
	B           bool      `json:"b"`
	Nil         any       `json:"nil"`
	Arr         []int     `json:"arr"`
	Big         *big.Int  `json:"big"`
}

func NewPerson() *Person {
	personsConstructed.Add(1)
	return &Person{}
}

func (p *Person) Init() {
	p.DateOfBirth = time.Date(1984, time.June, 16, 0, 0, 0, 0, time.UTC)
	p.Set = NewSet(1, 2, 3)
	p.Map = NewMap().Set("a", 1)
	p.N = 100
	p.B = true
	p.Nil = nil
	p.Arr = []int{1, 2, 3}
	p.Big = big.NewInt(9007199254740991)
}

func (p *Person) Age(now time.Time) int {
	return now.Year() - p.DateOfBirth.Year()
}

const personJSON = `{"__":"Person",` +
	`"dateOfBirth":{"__":"Date","___":"1984-06-16T00:00:00Z"},` +
	`"set":{"__":"Set","___":[1,2,3]},` +
	`"map":{"__":"Map","___":{"a":1}},` +
	`"n":100,"b":true,"nil":null,"arr":[1,2,3],` +
	`"big":{"__":"bigint","___":"9007199254740991"}}`

type Address struct {
	Street string
	Zip    int `json:"zip"`
}

type Customer struct {
	Name    string   `json:"name"`
	Address Address  `json:"address"`
	Tags    []string `json:"tags,omitempty"`
	Secret  string   `json:"-"`
	Extra   any      `json:"extra"`
	hidden  int
}
