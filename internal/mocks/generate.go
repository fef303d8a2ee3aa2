package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Store --dir ../domain/proof --output domain/proof --outpkg proofmock --filename store_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Verifier --dir ../domain/user --output domain/user --outpkg usermock --filename verifier_mock.go
