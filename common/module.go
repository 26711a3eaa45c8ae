package common

type Module string

const (
	ModuleSale       Module = "sale"
	ModuleLockedFund Module = "lockedfund"
)

func (m Module) String() string {
	return string(m)
}
